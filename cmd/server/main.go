// Package main implements the entry point for the Fable API server,
// which fronts long-running AI generation providers with background
// tasks and a progress polling endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/fable-app/fable-api/internal/config"
	"github.com/fable-app/fable-api/internal/platform/logger"
)

func main() {
	migrateOnly := flag.Bool("migrate", false, "run database migrations and exit")
	flag.Parse()

	cfg, appLogger, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := runMigrations(db, appLogger); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}
	if *migrateOnly {
		appLogger.Info("Migrations applied, exiting")
		return
	}

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration and sets up application components.
// Returns the loaded config, the root logger, and any initialization error.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"task_ttl_seconds", cfg.Tasks.TTLSeconds,
		"poll_timeout_seconds", cfg.Provider.PollTimeoutSeconds)

	return cfg, appLogger, nil
}
