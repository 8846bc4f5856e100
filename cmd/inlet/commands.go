package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattjoyce/inlet/internal/api"
	"github.com/mattjoyce/inlet/internal/config"
	"github.com/mattjoyce/inlet/internal/events"
	"github.com/mattjoyce/inlet/internal/lock"
	"github.com/mattjoyce/inlet/internal/log"
	"github.com/mattjoyce/inlet/internal/message"
	"github.com/mattjoyce/inlet/internal/metrics"
	"github.com/mattjoyce/inlet/internal/storage"
	"github.com/mattjoyce/inlet/internal/webhook"
)

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return startService(ctx, config.Discover(*configPath))
}

// startService runs the service until ctx is canceled. Returns the process
// exit code.
func startService(ctx context.Context, configPath string) int {
	cfg, whCfg, dbPath, err := loadServiceConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("inlet starting", "version", version, "config", cfg.SourcePath)

	pidLockPath := lock.PathFor(dbPath)
	pidLock, err := lock.Acquire(pidLockPath)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)", "path", pidLockPath, "error", err)
		return 1
	}
	defer func() { _ = pidLock.Release() }()
	logger.Info("acquired PID lock", "path", pidLockPath)

	db, err := storage.OpenSQLite(ctx, storage.Options{Path: dbPath, BusyTimeout: cfg.Storage.BusyTimeout})
	if err != nil {
		logger.Error("failed to open database", "path", dbPath, "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("database opened", "path", dbPath)

	store := message.NewStore(db)
	collector := metrics.New()
	hub := events.NewHub(cfg.Events.Buffer)

	webhookLogger := log.WithComponent("webhook")
	coordinator := webhook.NewCoordinator(whCfg, store, collector, webhookLogger)
	handler := webhook.NewHandler(whCfg, coordinator, hub, webhookLogger)

	server := api.New(api.Config{
		Listen:           cfg.HTTP.Listen,
		ReadTimeout:      cfg.HTTP.ReadTimeout,
		WriteTimeout:     cfg.HTTP.WriteTimeout,
		CORSOrigins:      cfg.HTTP.CORSOrigins,
		DefaultLimit:     cfg.Query.DefaultLimit,
		MaxLimit:         cfg.Query.MaxLimit,
		SecretConfigured: whCfg.Secret != "",
	}, handler, store, hub, collector, log.WithComponent("api"))

	logger.Info("inlet running (press Ctrl+C to stop)", "listen", cfg.HTTP.Listen)
	// Start returns ctx.Err() after a clean shutdown.
	if err := server.Start(ctx); err != nil && !errors.Is(err, ctx.Err()) {
		logger.Error("server failed", "error", err)
		return 1
	}

	logger.Info("inlet stopped")
	return 0
}

// loadServiceConfig loads and cross-checks everything startup depends on.
func loadServiceConfig(configPath string) (*config.Config, webhook.Config, string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, webhook.Config{}, "", err
	}
	whCfg, err := webhook.FromGlobalConfig(cfg)
	if err != nil {
		return nil, webhook.Config{}, "", fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	dbPath, err := storage.ParseDatabaseURL(cfg.Storage.DatabaseURL)
	if err != nil {
		return nil, webhook.Config{}, "", fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	return cfg, whCfg, dbPath, nil
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	path := config.Discover(*configPath)
	cfg, _, dbPath, err := loadServiceConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration invalid: %v\n", err)
		return 1
	}

	source := cfg.SourcePath
	if source == "" {
		source = "(defaults + environment)"
	}
	fmt.Printf("Configuration valid: %s\n", source)
	fmt.Printf("  listen:   %s\n", cfg.HTTP.Listen)
	fmt.Printf("  database: %s\n", dbPath)
	return 0
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	path := config.Discover(*configPath)
	if path == "" {
		fmt.Fprintln(os.Stderr, "No config file to lock (use --config, $INLET_CONFIG or ./inlet.yaml)")
		return 1
	}

	checksumPath, err := config.Lock(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config: %v\n", err)
		return 1
	}
	fmt.Printf("Wrote %s\n", checksumPath)
	return 0
}

func runSign(args []string) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	secret := fs.String("secret", os.Getenv(config.EnvSecret), "Webhook secret (default $WEBHOOK_SECRET)")
	body := fs.String("body", "", "Request body to sign")
	file := fs.String("file", "", "Read the request body from a file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "A secret is required (--secret or $WEBHOOK_SECRET)")
		return 1
	}
	if *body != "" && *file != "" {
		fmt.Fprintln(os.Stderr, "--body and --file are mutually exclusive")
		return 1
	}

	var (
		data []byte
		err  error
	)
	switch {
	case *body != "":
		data = []byte(*body)
	case *file != "":
		data, err = os.ReadFile(*file)
	default:
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read body: %v\n", err)
		return 1
	}

	fmt.Println(webhook.ComputeSignature(data, *secret))
	return 0
}
