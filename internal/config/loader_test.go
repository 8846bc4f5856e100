package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every override so the host environment can't leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvConfig, EnvListen, EnvDatabaseURL, EnvSecret, EnvLogLevel} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inlet.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr bool
		checkFn func(t *testing.T, cfg *Config)
	}{
		{
			name: "minimal config keeps defaults",
			yaml: `
webhook:
  secret: s3cret
`,
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.Webhook.Secret != "s3cret" {
					t.Errorf("secret = %q", cfg.Webhook.Secret)
				}
				if cfg.HTTP.Listen != "0.0.0.0:8000" {
					t.Errorf("listen default not applied: %q", cfg.HTTP.Listen)
				}
				if cfg.Webhook.SignatureHeader != "X-Signature" {
					t.Errorf("signature header default not applied: %q", cfg.Webhook.SignatureHeader)
				}
				if cfg.Storage.Timeout != 5*time.Second {
					t.Errorf("storage timeout default not applied: %v", cfg.Storage.Timeout)
				}
				if cfg.Query.MaxLimit != 100 || cfg.Query.DefaultLimit != 50 {
					t.Errorf("query defaults not applied: %+v", cfg.Query)
				}
				if cfg.SourcePath == "" {
					t.Error("source path not recorded")
				}
			},
		},
		{
			name: "full config",
			yaml: `
service:
  name: edge
  log_level: debug
http:
  listen: 127.0.0.1:9000
  read_timeout: 3s
  write_timeout: 4s
  cors_origins: ["https://ops.example.com"]
webhook:
  secret: abc
  signature_header: X-Hub-Signature-256
  max_body_size: 1MB
storage:
  database_url: sqlite:///tmp/inlet.db
  timeout: 2s
  busy_timeout: 1s
query:
  default_limit: 10
  max_limit: 20
events:
  buffer: 8
`,
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.Service.Name != "edge" || cfg.Service.LogLevel != "debug" {
					t.Errorf("service = %+v", cfg.Service)
				}
				if cfg.HTTP.ReadTimeout != 3*time.Second || cfg.HTTP.WriteTimeout != 4*time.Second {
					t.Errorf("http timeouts = %+v", cfg.HTTP)
				}
				if len(cfg.HTTP.CORSOrigins) != 1 || cfg.HTTP.CORSOrigins[0] != "https://ops.example.com" {
					t.Errorf("cors origins = %v", cfg.HTTP.CORSOrigins)
				}
				if cfg.Webhook.SignatureHeader != "X-Hub-Signature-256" || cfg.Webhook.MaxBodySize != "1MB" {
					t.Errorf("webhook = %+v", cfg.Webhook)
				}
				if cfg.Storage.DatabaseURL != "sqlite:///tmp/inlet.db" || cfg.Storage.BusyTimeout != time.Second {
					t.Errorf("storage = %+v", cfg.Storage)
				}
				if cfg.Events.Buffer != 8 {
					t.Errorf("events.buffer = %d", cfg.Events.Buffer)
				}
			},
		},
		{
			name: "env var interpolation",
			yaml: `
webhook:
  secret: ${HOOK_SECRET}
storage:
  database_url: sqlite:///${DB_DIR}/app.db
`,
			env: map[string]string{"HOOK_SECRET": "from-env", "DB_DIR": "/var/lib/inlet"},
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.Webhook.Secret != "from-env" {
					t.Errorf("secret = %q", cfg.Webhook.Secret)
				}
				if cfg.Storage.DatabaseURL != "sqlite:////var/lib/inlet/app.db" {
					t.Errorf("database_url = %q", cfg.Storage.DatabaseURL)
				}
			},
		},
		{
			name: "environment overrides file",
			yaml: `
service:
  log_level: info
http:
  listen: 0.0.0.0:8000
webhook:
  secret: file-secret
storage:
  database_url: sqlite:////data/app.db
`,
			env: map[string]string{
				EnvSecret:      "env-secret",
				EnvDatabaseURL: "sqlite:////tmp/other.db",
				EnvLogLevel:    "WARN",
				EnvListen:      "127.0.0.1:7000",
			},
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.Webhook.Secret != "env-secret" {
					t.Errorf("secret = %q", cfg.Webhook.Secret)
				}
				if cfg.Storage.DatabaseURL != "sqlite:////tmp/other.db" {
					t.Errorf("database_url = %q", cfg.Storage.DatabaseURL)
				}
				if cfg.Service.LogLevel != "warn" {
					t.Errorf("log_level = %q", cfg.Service.LogLevel)
				}
				if cfg.HTTP.Listen != "127.0.0.1:7000" {
					t.Errorf("listen = %q", cfg.HTTP.Listen)
				}
			},
		},
		{
			name:    "missing secret",
			yaml:    "service:\n  name: inlet\n",
			wantErr: true,
		},
		{
			name:    "unresolved secret variable",
			yaml:    "webhook:\n  secret: ${NOT_SET_ANYWHERE}\n",
			wantErr: true,
		},
		{
			name:    "non sqlite database url",
			yaml:    "webhook:\n  secret: x\nstorage:\n  database_url: postgres://db/app\n",
			wantErr: true,
		},
		{
			name:    "bad log level",
			yaml:    "service:\n  log_level: loud\nwebhook:\n  secret: x\n",
			wantErr: true,
		},
		{
			name:    "default limit above max",
			yaml:    "webhook:\n  secret: x\nquery:\n  default_limit: 200\n  max_limit: 100\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			yaml:    "webhook: [\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(writeConfig(t, tt.yaml))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Load() error = nil, want error")
				}
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("Load() error = %v, want ErrInvalid", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if tt.checkFn != nil {
				tt.checkFn(t, cfg)
			}
		})
	}
}

func TestLoadWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvSecret, "only-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Webhook.Secret != "only-env" {
		t.Errorf("secret = %q", cfg.Webhook.Secret)
	}
	if cfg.SourcePath != "" {
		t.Errorf("source path = %q, want empty", cfg.SourcePath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDiscover(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	if got := Discover(""); got != "" {
		t.Errorf("Discover() = %q, want empty", got)
	}

	if err := os.WriteFile(DefaultFileName, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := Discover(""); got != DefaultFileName {
		t.Errorf("Discover() = %q, want %q", got, DefaultFileName)
	}

	t.Setenv(EnvConfig, "/etc/inlet/inlet.yaml")
	if got := Discover(""); got != "/etc/inlet/inlet.yaml" {
		t.Errorf("Discover() = %q, want env path", got)
	}
	if got := Discover("/explicit.yaml"); got != "/explicit.yaml" {
		t.Errorf("Discover() = %q, want explicit path", got)
	}
}

func TestInterpolateEnv(t *testing.T) {
	tests := []struct {
		name  string
		input string
		env   map[string]string
		want  string
	}{
		{
			name:  "simple replacement",
			input: "path: ${INLET_TEST_HOME}/data",
			env:   map[string]string{"INLET_TEST_HOME": "/users/test"},
			want:  "path: /users/test/data",
		},
		{
			name:  "multiple vars",
			input: "${INLET_U}:${INLET_P}",
			env:   map[string]string{"INLET_U": "admin", "INLET_P": "secret"},
			want:  "admin:secret",
		},
		{
			name:  "undefined var unchanged",
			input: "key: ${INLET_UNDEFINED_VAR}",
			want:  "key: ${INLET_UNDEFINED_VAR}",
		},
		{
			name:  "no vars",
			input: "plain text",
			want:  "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if got := interpolateEnv(tt.input); got != tt.want {
				t.Errorf("interpolateEnv() = %q, want %q", got, tt.want)
			}
		})
	}
}
