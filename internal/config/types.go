package config

import "time"

// Config represents the complete inlet configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	HTTP    HTTPConfig    `yaml:"http"`
	Webhook WebhookConfig `yaml:"webhook"`
	Storage StorageConfig `yaml:"storage"`
	Query   QueryConfig   `yaml:"query"`
	Events  EventsConfig  `yaml:"events"`

	// SourcePath is the absolute path of the file this config was read
	// from. Empty when running on defaults and environment only.
	SourcePath string `yaml:"-"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
}

// HTTPConfig defines the listener.
type HTTPConfig struct {
	Listen       string        `yaml:"listen"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins,omitempty"`
}

// WebhookConfig defines the ingestion endpoint.
type WebhookConfig struct {
	Secret          string `yaml:"secret"`
	SignatureHeader string `yaml:"signature_header"`
	MaxBodySize     string `yaml:"max_body_size"` // e.g. "64KB", "1MB"
}

// StorageConfig defines the SQLite message store.
type StorageConfig struct {
	DatabaseURL string        `yaml:"database_url"` // sqlite:///<path>
	Timeout     time.Duration `yaml:"timeout"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// QueryConfig bounds GET /messages pagination.
type QueryConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// EventsConfig sizes the replay buffer behind GET /events.
type EventsConfig struct {
	Buffer int `yaml:"buffer"`
}

// Defaults returns a Config with every field except the webhook secret set.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:     "inlet",
			LogLevel: "info",
		},
		HTTP: HTTPConfig{
			Listen:       "0.0.0.0:8000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			CORSOrigins:  []string{"*"},
		},
		Webhook: WebhookConfig{
			SignatureHeader: "X-Signature",
			MaxBodySize:     "64KB",
		},
		Storage: StorageConfig{
			DatabaseURL: "sqlite:////data/app.db",
			Timeout:     5 * time.Second,
			BusyTimeout: 5 * time.Second,
		},
		Query: QueryConfig{
			DefaultLimit: 50,
			MaxLimit:     100,
		},
		Events: EventsConfig{
			Buffer: 256,
		},
	}
}
