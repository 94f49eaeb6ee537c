// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/rewdy/snaption/internal/api"
	"github.com/rewdy/snaption/internal/catalog"
	"github.com/rewdy/snaption/internal/mcpserver"
	"github.com/rewdy/snaption/internal/scan"
	"github.com/rewdy/snaption/internal/search"
	"github.com/rewdy/snaption/internal/sidecar"
	"github.com/rewdy/snaption/internal/sse"
	"github.com/rewdy/snaption/internal/storage"
	"github.com/rewdy/snaption/internal/thumbs"
)

// brokerNotifier forwards catalog events to the SSE broker.
type brokerNotifier struct {
	broker *sse.Broker
}

func (n brokerNotifier) CatalogPublished(count int) {
	n.broker.Publish(sse.Event{Type: "library.published", Data: map[string]int{"count": count}})
}

func (n brokerNotifier) StateChanged(state catalog.State, status string) {
	n.broker.Publish(sse.Event{Type: "library.state", Data: map[string]string{
		"state":  string(state),
		"status": status,
	}})
}

func (n brokerNotifier) PerformanceUpdated(snap catalog.PerformanceSnapshot) {
	n.broker.PublishPerformance(snap)
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger. In MCP mode stdout carries the
	// protocol, so logs go to stderr.
	logTarget := os.Stdout
	if app.mcpMode {
		logTarget = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logTarget, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.Int("batch_size", cfg.Indexer.BatchSize),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure library directory exists.
	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return fmt.Errorf("create library dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Library.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize the in-memory search index; it is rebuilt on every open.
	idx, err := search.OpenIndex()
	if err != nil {
		return fmt.Errorf("init search index: %w", err)
	}
	defer idx.Close()

	sidecars := sidecar.NewService(store)
	indexer := search.NewIndexer(idx, sidecars, logger)
	cache := thumbs.NewCache(thumbs.Options{
		MaxEntries: cfg.Thumbnails.MaxEntries,
		MaxBytes:   cfg.Thumbnails.MaxBytes,
	})

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	ctl := catalog.NewController(
		scan.NewScanner(cfg.Indexer.BatchSize),
		indexer,
		cache,
		catalog.Options{
			PublishThreshold: cfg.Indexer.PublishThreshold,
			PollInterval:     cfg.Indexer.PollInterval(),
		},
		brokerNotifier{broker: broker},
		logger,
	)
	defer ctl.Close()

	// Build API service and start indexing the configured library.
	svc := api.NewService(ctl, store, sidecars, indexer, cache, broker)
	if err := svc.OpenProject(ctx, cfg.Library.Path); err != nil {
		return fmt.Errorf("open library: %w", err)
	}

	if app.mcpMode {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(svc).ServeStdio()
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheus metrics (unauthenticated).
	r.Handle("/metrics", promhttp.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch sidecars for edits made outside this process.
	g.Go(func() error {
		err := search.Watch(gCtx, indexer, ctl.RecordForSidecar, cfg.Library.Path, logger, func(kind, path string) {
			ctl.RefreshViews()
			broker.PublishSidecarEvent(kind, path)
		})
		if err != nil {
			logger.Warn("sidecar watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
