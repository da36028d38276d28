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
	"golang.org/x/sync/errgroup"

	"github.com/starford/gebo/internal/api"
	"github.com/starford/gebo/internal/engine"
	"github.com/starford/gebo/internal/history"
	"github.com/starford/gebo/internal/mcpserver"
	"github.com/starford/gebo/internal/orchestrator"
	"github.com/starford/gebo/internal/remote"
	"github.com/starford/gebo/internal/sse"
	"github.com/starford/gebo/internal/storage"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{mode: ModeDaemon}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger. In MCP mode stdout carries the
	// protocol stream, so logs go to stderr.
	logTarget := os.Stdout
	if app.mode == ModeMCP {
		logTarget = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logTarget, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("remote_base_url", cfg.Remote.BaseURL),
		slog.String("default_list", cfg.Remote.DefaultList),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize remote task service client.
	svc := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Token)

	eng := engine.New(store, svc, engine.Config{
		DefaultList:    cfg.Remote.DefaultList,
		TasksDoc:       cfg.Vault.TasksDoc,
		SuppressWindow: cfg.Sync.SuppressWindow(),
	}, logger)
	defer eng.Close()

	// One-shot mode runs a single pass and exits.
	if app.mode == ModeOnce {
		rep, err := eng.PerformSync(ctx)
		if err != nil {
			return fmt.Errorf("sync pass: %w", err)
		}
		logger.Info("Sync pass complete",
			slog.Int("pushed", rep.Pushed),
			slog.Int("pulled", rep.Pulled),
			slog.Int("created_remote", rep.CreatedRemote),
			slog.Int("created_local", rep.CreatedLocal),
			slog.Int("unlinked", rep.Unlinked),
			slog.Int("skipped", rep.Skipped),
			slog.Int("failures", rep.Failures),
			slog.Duration("duration", rep.Duration))
		return nil
	}

	// Pass history database.
	var hist *history.Store
	if cfg.History.Enabled {
		hist, err = history.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("init history: %w", err)
		}
		defer hist.Close()
	}

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	orch := orchestrator.New(eng, orchestrator.Config{
		Interval:    cfg.Sync.Interval(),
		SettleDelay: cfg.Sync.SettleDelay(),
	}, logger, hist, broker)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start the sync loop.
	g.Go(func() error {
		return orch.Run(gCtx)
	})

	// Start vault watcher.
	if cfg.Vault.Watch {
		g.Go(func() error {
			return orch.Watch(gCtx, cfg.Vault.Path, cfg.Vault.WatchDebounce())
		})
	}

	var httpServer *http.Server
	if app.mode == ModeMCP {
		mcpSrv := mcpserver.New(orch, store)
		g.Go(func() error {
			logger.Info("Starting MCP server on stdio")
			if err := mcpSrv.ServeStdio(); err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		})
	} else if cfg.App.HTTP.Enabled {
		// A typed nil *history.Store must not reach the interface, or the
		// handler's nil check would pass it through.
		var histSrc api.HistorySource
		if hist != nil {
			histSrc = hist
		}
		apiRouter := api.NewRouter(orch, histSrc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

		r.Mount("/api", apiRouter)

		httpServer = &http.Server{
			Addr:    cfg.App.HTTP.Address(),
			Handler: r,
		}

		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

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

		logger.Info("Shutting down...")
		cancel()

		if httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Stopped successfully")
	return nil
}
