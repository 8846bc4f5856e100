// Package api wires the inlet HTTP surface onto a chi router.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mattjoyce/inlet/internal/events"
	"github.com/mattjoyce/inlet/internal/message"
	"github.com/mattjoyce/inlet/internal/metrics"
)

// MessageReader is the read side of the message store.
type MessageReader interface {
	List(ctx context.Context, f message.Filter) (message.Page, error)
	Get(ctx context.Context, messageID string) (*message.Message, error)
	Stats(ctx context.Context) (message.Stats, error)
	Ready(ctx context.Context) error
}

// Config holds API server configuration.
type Config struct {
	Listen       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	DefaultLimit int
	MaxLimit     int
	// SecretConfigured gates /health/ready; a service that cannot verify
	// signatures is not ready for traffic.
	SecretConfigured bool
}

// Server represents the HTTP API server.
type Server struct {
	config    Config
	webhook   http.Handler
	store     MessageReader
	events    *events.Hub
	metrics   *metrics.Collector
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time

	// closing is closed when shutdown begins so open event streams end.
	closing chan struct{}
}

// New creates a new API server instance. webhook serves POST /webhook.
func New(config Config, webhook http.Handler, store MessageReader, hub *events.Hub, collector *metrics.Collector, logger *slog.Logger) *Server {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = message.DefaultLimit
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = message.MaxLimit
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 10 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	if hub == nil {
		hub = events.NewHub(256)
	}
	if collector == nil {
		collector = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:    config,
		webhook:   webhook,
		store:     store,
		events:    hub,
		metrics:   collector,
		logger:    logger,
		startedAt: time.Now(),
		closing:   make(chan struct{}),
	}
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// Start starts the HTTP server and blocks until ctx is canceled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.setupRoutes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	// Shutdown does not cancel request contexts; long-lived streams need a nudge.
	s.server.RegisterOnShutdown(func() { close(s.closing) })

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.metricsMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))

	if s.webhook != nil {
		r.Method(http.MethodPost, "/webhook", s.webhook)
	}

	r.Get("/messages", s.handleListMessages)
	r.Get("/messages/{messageID}", s.handleGetMessage)
	r.Get("/stats", s.handleStats)

	r.Get("/health/live", s.handleLive)
	r.Get("/health/ready", s.handleReady)
	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/events", s.handleEvents)

	return r
}
