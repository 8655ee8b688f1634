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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/secondbrain/internal/api"
	"github.com/starford/secondbrain/internal/daily"
	"github.com/starford/secondbrain/internal/engine"
	"github.com/starford/secondbrain/internal/journal"
	"github.com/starford/secondbrain/internal/llm"
	"github.com/starford/secondbrain/internal/prompt"
	"github.com/starford/secondbrain/internal/sse"
	"github.com/starford/secondbrain/internal/vault"
	"github.com/starford/secondbrain/internal/watch"
	"github.com/starford/secondbrain/internal/writer"
)

// NewLogger builds the structured JSON logger used across the application
// and installs it as the slog default.
func NewLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// prepareVault ensures the vault tree exists and returns the vault handle.
func prepareVault(cfg *Config) (*vault.Vault, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(cfg.Vault.Path, cfg.Vault.ResponseFolder), 0o755); err != nil {
		return nil, fmt.Errorf("create response folder: %w", err)
	}
	if cfg.Daily.Enabled {
		if err := os.MkdirAll(filepath.Join(cfg.Vault.Path, cfg.Daily.Folder), 0o755); err != nil {
			return nil, fmt.Errorf("create daily folder: %w", err)
		}
	}
	return vault.New(cfg.Vault.Path, cfg.Vault.ExcludedFolders)
}

// BuildEngine wires the full processing pipeline from configuration. db and
// pub may be nil for one-shot runs without persistence or event broadcast.
func BuildEngine(cfg *Config, db *journal.DB, pub engine.Publisher, logger *slog.Logger) (*engine.Engine, error) {
	v, err := prepareVault(cfg)
	if err != nil {
		return nil, err
	}

	dm := daily.NewManager(v, daily.Config{
		Enabled:     cfg.Daily.Enabled,
		Folder:      cfg.Daily.Folder,
		FileFormats: cfg.Daily.FileFormats,
		DateFormats: cfg.Daily.DateFormats,
		Template:    cfg.Daily.Template,
	}, logger)

	pb := prompt.NewBuilder(cfg.Engine.SystemPrompt, cfg.LLM.ContextBudget)

	client := llm.NewHTTPClient(llm.Options{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout(),
		MaxRetries:  cfg.LLM.MaxRetries,
		Backoff:     cfg.LLM.Backoff(),
	}, logger)

	w := writer.New(v, cfg.Vault.ResponseFolder, cfg.Engine.InlineHeading, cfg.Daily.ReviewHeading, logger)

	return engine.New(v, dm, pb, client, w, db, pub, engine.Options{
		MinNoteLength:  cfg.Engine.MinNoteLength,
		WriteMode:      cfg.Engine.WriteMode,
		ResponseFolder: cfg.Vault.ResponseFolder,
	}, logger), nil
}

// Run starts the application with the given options: the file watcher, the
// debounced processing pipeline, and the HTTP server, supervised together.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	logger := NewLogger(cfg)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("journal_path", cfg.Journal.Path),
		slog.String("write_mode", cfg.Engine.WriteMode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("init journal: %w", err)
	}
	defer db.Close()

	broker := sse.NewBroker()
	defer broker.Close()

	eng, err := BuildEngine(cfg, db, broker, logger)
	if err != nil {
		return err
	}

	v, err := vault.New(cfg.Vault.Path, cfg.Vault.ExcludedFolders)
	if err != nil {
		return err
	}
	debouncer := watch.NewDebouncer(cfg.Engine.DebounceWindow(), logger)
	detector := watch.NewDetector(v, []string{cfg.Vault.ResponseFolder}, debouncer.In(), logger)

	apiRouter := api.NewRouter(eng, db, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	// File watcher feeding the debouncer.
	g.Go(func() error {
		return detector.Run(gCtx)
	})

	// Debouncer loop; closes the dispatch channel on shutdown so workers
	// drain and exit.
	g.Go(func() error {
		return debouncer.Run(gCtx)
	})

	// Pipeline workers.
	g.Go(func() error {
		return eng.RunWorkers(gCtx, debouncer, cfg.Engine.Workers)
	})

	// HTTP server.
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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
