// worker runs the knowledge engine: River workers for the interaction pipeline, topic
// reference vectors and graded mastery updates.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/learnhub/engine/internal/config"
	"github.com/learnhub/engine/pkg/database"
)

const (
	exitSuccess     = 0
	exitFailure     = 1
	shutdownTimeout = 30 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)

		return exitFailure
	}

	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.MigrateURL(ctx, cfg.DatabaseURL); err != nil {
		slog.Error("Failed to apply migrations", "error", err)

		return exitFailure
	}

	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL,
		database.WithVectorTypes(),
		database.WithMaxConns(cfg.DatabaseMaxConns),
	)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)

		return exitFailure
	}
	defer db.Close()

	app, err := NewApp(ctx, cfg, db)
	if err != nil {
		slog.Error("Failed to initialize worker", "error", err)

		return exitFailure
	}

	code := exitSuccess

	if err := app.Run(ctx); err != nil {
		slog.Error("Worker stopped with error", "error", err)

		code = exitFailure
	}

	slog.Info("Shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)

		code = exitFailure
	}

	slog.Info("Worker exited")

	return code
}

// setupLogging configures slog with the specified log level.
func setupLogging(level string) {
	var logLevel slog.Level

	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}
