package webhook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattjoyce/inlet/internal/config"
)

// FromGlobalConfig converts the service configuration into webhook settings.
func FromGlobalConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("config is nil")
	}
	if cfg.Webhook.Secret == "" {
		return Config{}, fmt.Errorf("webhook secret is not configured")
	}

	maxBodySize, err := parseMaxBodySize(cfg.Webhook.MaxBodySize)
	if err != nil {
		return Config{}, fmt.Errorf("invalid webhook.max_body_size %q: %w", cfg.Webhook.MaxBodySize, err)
	}

	header := cfg.Webhook.SignatureHeader
	if header == "" {
		header = DefaultSignatureHeader
	}

	return Config{
		Secret:          cfg.Webhook.Secret,
		SignatureHeader: header,
		MaxBodySize:     maxBodySize,
		StoreTimeout:    cfg.Storage.Timeout,
	}, nil
}

// parseMaxBodySize parses size strings like "64KB", "1MB" or "65536" to bytes.
// Returns DefaultMaxBodySize if empty.
func parseMaxBodySize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodySize, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(size))
	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{
		{"KB", 1024},
		{"MB", 1024 * 1024},
		{"GB", 1024 * 1024 * 1024},
	} {
		if strings.HasSuffix(upper, unit.suffix) {
			multiplier = unit.mult
			upper = strings.TrimSuffix(upper, unit.suffix)
			break
		}
	}

	value, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result/multiplier != value {
		return 0, fmt.Errorf("size too large")
	}
	return result, nil
}
