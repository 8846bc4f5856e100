package storage

import (
	"fmt"
	"strings"
)

const sqliteURLPrefix = "sqlite:///"

// ParseDatabaseURL turns a sqlite URL into a filesystem path.
//
//	sqlite:////data/app.db  -> /data/app.db
//	sqlite:///./data/app.db -> ./data/app.db
func ParseDatabaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("database url is empty")
	}
	if !strings.HasPrefix(raw, sqliteURLPrefix) {
		return "", fmt.Errorf("unsupported database url %q: expected %s<path>", raw, sqliteURLPrefix)
	}
	path := strings.TrimPrefix(raw, sqliteURLPrefix)
	if path == "" {
		return "", fmt.Errorf("database url %q has no path", raw)
	}
	return path, nil
}
