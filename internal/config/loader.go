package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/inlet/internal/storage"
)

// ErrInvalid marks configuration that must stop the service from starting.
var ErrInvalid = errors.New("invalid configuration")

// DefaultFileName is picked up from the working directory when no path is given.
const DefaultFileName = "inlet.yaml"

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Environment variables that override file values.
const (
	EnvConfig      = "INLET_CONFIG"
	EnvListen      = "INLET_LISTEN"
	EnvDatabaseURL = "DATABASE_URL"
	EnvSecret      = "WEBHOOK_SECRET"
	EnvLogLevel    = "LOG_LEVEL"
)

// Discover resolves which config file to use.
// Priority order: explicit path, $INLET_CONFIG, ./inlet.yaml. An empty result
// means no file; the service runs on defaults plus environment.
func Discover(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultFileName); err == nil {
		return DefaultFileName
	}
	return ""
}

// Load reads configuration from configPath (optional), applies defaults and
// environment overrides, verifies the .checksums manifest when one exists
// beside the file, and validates the result.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if configPath != "" {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
		}
		if err := loadConfigFile(absPath, cfg); err != nil {
			return nil, err
		}
		if err := VerifyConfigHash(absPath); err != nil {
			return nil, err
		}
		cfg.SourcePath = absPath
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadConfigFile decodes path on top of cfg so absent keys keep their defaults.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s\n"+
				"Hint: Check the path or run with --config flag", path)
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	interpolated := interpolateEnv(string(data))
	if err := yaml.Unmarshal([]byte(interpolated), cfg); err != nil {
		return fmt.Errorf("%w: failed to parse YAML %s: %v", ErrInvalid, filepath.Base(path), err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv(EnvDatabaseURL); ok && v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v, ok := os.LookupEnv(EnvSecret); ok && v != "" {
		cfg.Webhook.Secret = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		cfg.Service.LogLevel = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv(EnvListen); ok && v != "" {
		cfg.HTTP.Listen = v
	}
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is so validation can name them.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// validate checks the merged configuration. Every error wraps ErrInvalid.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(cfg.Service.LogLevel)] {
		return invalid("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	if cfg.HTTP.Listen == "" {
		return invalid("http.listen is required")
	}
	if cfg.HTTP.ReadTimeout <= 0 || cfg.HTTP.WriteTimeout <= 0 {
		return invalid("http read/write timeouts must be positive")
	}

	if matches := envVarPattern.FindStringSubmatch(cfg.Webhook.Secret); len(matches) > 1 {
		return invalid("webhook.secret: environment variable ${%s} is not set", matches[1])
	}
	if cfg.Webhook.Secret == "" {
		return invalid("webhook.secret is required (set %s)", EnvSecret)
	}
	if cfg.Webhook.SignatureHeader == "" {
		return invalid("webhook.signature_header is required")
	}

	if _, err := storage.ParseDatabaseURL(cfg.Storage.DatabaseURL); err != nil {
		return invalid("storage.database_url: %v", err)
	}
	if cfg.Storage.Timeout <= 0 {
		return invalid("storage.timeout must be positive")
	}
	if cfg.Storage.BusyTimeout <= 0 {
		return invalid("storage.busy_timeout must be positive")
	}

	if cfg.Query.DefaultLimit <= 0 || cfg.Query.MaxLimit <= 0 {
		return invalid("query limits must be positive")
	}
	if cfg.Query.DefaultLimit > cfg.Query.MaxLimit {
		return invalid("query.default_limit (%d) exceeds query.max_limit (%d)", cfg.Query.DefaultLimit, cfg.Query.MaxLimit)
	}

	if cfg.Events.Buffer <= 0 {
		return invalid("events.buffer must be positive")
	}
	return nil
}
