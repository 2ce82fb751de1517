package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/fable-app/fable-api/internal/config"
	"github.com/fable-app/fable-api/internal/generation"
	"github.com/fable-app/fable-api/internal/platform/gemini"
	"github.com/fable-app/fable-api/internal/platform/postgres"
	"github.com/fable-app/fable-api/internal/platform/storage"
	"github.com/fable-app/fable-api/internal/provider"
	"github.com/fable-app/fable-api/internal/service/auth"
	"github.com/fable-app/fable-api/internal/store"
	"github.com/fable-app/fable-api/internal/task"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	jwtService    auth.JWTService
	taskManager   *task.Manager
	mediaStore    *storage.LocalStore
	assetStore    store.AssetStore
	generationSvc *generation.Service
}

// newApplication creates a new application instance with all dependencies initialized.
// It accepts core dependencies like configuration, logger, and database connection that
// must be established before application initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.taskManager = task.NewManager(task.ManagerConfig{
		TTL:          time.Duration(cfg.Tasks.TTLSeconds) * time.Second,
		HistoryLimit: cfg.Tasks.HistoryLimit,
	}, logger.With("component", "task_manager"))

	app.mediaStore, err = storage.NewLocalStore(
		cfg.Storage.Dir,
		cfg.Storage.PublicBase,
		logger.With("component", "media_store"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media store: %w", err)
	}

	providerClient, err := provider.NewClient(provider.Config{
		BaseURL:  cfg.Provider.BaseURL,
		APIToken: cfg.Provider.APIToken,
	}, logger.With("component", "provider_client"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize provider client: %w", err)
	}

	app.assetStore = postgres.NewAssetStore(db)

	scriptWriter, err := gemini.NewScriptWriter(
		ctx,
		logger.With("component", "script_writer"),
		cfg.LLM,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize script writer: %w", err)
	}
	logger.Info("Script writer initialized", "model", cfg.LLM.ModelName)

	app.generationSvc, err = generation.NewService(
		app.taskManager,
		providerClient,
		scriptWriter,
		app.mediaStore,
		app.assetStore,
		generation.Config{
			PollTimeout:  time.Duration(cfg.Provider.PollTimeoutSeconds) * time.Second,
			PollInterval: time.Duration(cfg.Provider.PollIntervalSeconds) * time.Second,
			ImageModel:   cfg.Provider.ImageModel,
			SpeechModel:  cfg.Provider.SpeechModel,
			VideoModel:   cfg.Provider.VideoModel,
		},
		logger.With("component", "generation_service"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go app.runTaskJanitor(janitorCtx)

	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// runTaskJanitor periodically evicts expired task records. Creates and
// polls already sweep lazily; the janitor covers idle periods where no
// request would trigger a sweep.
func (app *application) runTaskJanitor(ctx context.Context) {
	interval := time.Duration(app.config.Tasks.TTLSeconds) * time.Second / 4
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := app.taskManager.CleanupOldTasks(); removed > 0 {
				app.logger.Info("task janitor evicted expired tasks", "count", removed)
			}
		}
	}
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
