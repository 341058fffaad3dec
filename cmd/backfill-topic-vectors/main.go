// backfill-topic-vectors enqueues River jobs that generate reference vectors for topics
// that have none (e.g. topics imported before the engine ran). The worker processes them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/learnhub/engine/internal/jobs"
	"github.com/learnhub/engine/internal/repository"
	"github.com/learnhub/engine/pkg/database"
	"github.com/learnhub/engine/pkg/engine"
)

const (
	defaultLimit       = 10000
	defaultMaxAttempts = 3
	enqueueRetries     = 3
	exitSuccess        = 0
	exitFailure        = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	limit := flag.Int("limit", defaultLimit, "maximum number of topics to enqueue")
	flag.Parse()

	// Load .env for consistency with the worker (config.Load there).
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		slog.Error("DATABASE_URL is required")

		return exitFailure
	}

	maxAttempts := getEnvAsInt("PIPELINE_MAX_ATTEMPTS", defaultMaxAttempts)
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	ctx := context.Background()

	db, err := database.NewPostgresPool(ctx, databaseURL, database.WithVectorTypes())
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)

		return exitFailure
	}
	defer db.Close()

	client, err := engine.Open(db,
		engine.WithMaxAttempts(maxAttempts),
		engine.WithEnqueueRetry(enqueueRetries, 2*time.Second),
	)
	if err != nil {
		slog.Error("Failed to create engine client", "error", err)

		return exitFailure
	}

	stats, err := jobs.BackfillTopicVectors(ctx, repository.NewTopicsRepository(db), client, *limit)
	if err != nil {
		slog.Error("Backfill failed", "error", err)

		return exitFailure
	}

	slog.Info("Backfill complete",
		"found", stats.TopicsFound,
		"enqueued", stats.TopicsEnqueued,
		"errors", stats.Errors,
	)

	fmt.Printf("Enqueued %d topic vector job(s).\n", stats.TopicsEnqueued)

	if stats.Errors > 0 {
		return exitFailure
	}

	return exitSuccess
}

func getEnvAsInt(key string, defaultValue int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}

	return n
}
