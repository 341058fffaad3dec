// submit hands work to the knowledge engine from the command line: an interaction event
// or a quiz submission read as JSON from a file or stdin. It is what application hooks and
// operators use to replay interactions and grade quizzes without going through the app.
//
//	submit interaction [-file event.json]
//	submit quiz [-file submission.json]
//	submit topic-vector -topic <uuid>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/learnhub/engine/pkg/database"
	"github.com/learnhub/engine/pkg/engine"
)

const (
	defaultMaxAttempts = 3
	exitSuccess        = 0
	exitFailure        = 1
	exitUsage          = 2
)

var errUsage = errors.New("usage: submit <interaction|quiz|topic-vector> [flags]")

// submitter is the part of engine.Client the command drives.
type submitter interface {
	SubmitInteraction(ctx context.Context, event engine.InteractionEvent) error
	SubmitQuiz(ctx context.Context, sub *engine.QuizSubmission) (*engine.QuizResult, error)
	SubmitTopicVector(ctx context.Context, topicID uuid.UUID) error
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, errUsage)

		return exitUsage
	}

	// Load .env for consistency with the worker (config.Load there).
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		slog.Error("DATABASE_URL is required")

		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresPool(ctx, databaseURL, database.WithVectorTypes())
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)

		return exitFailure
	}
	defer db.Close()

	client, err := engine.Open(db, engine.WithMaxAttempts(getEnvAsInt("PIPELINE_MAX_ATTEMPTS", defaultMaxAttempts)))
	if err != nil {
		slog.Error("Failed to create engine client", "error", err)

		return exitFailure
	}

	if err := dispatch(ctx, client, args, os.Stdin, os.Stdout); err != nil {
		slog.Error("Submit failed", "command", args[0], "error", err)

		if errors.Is(err, errUsage) {
			return exitUsage
		}

		return exitFailure
	}

	return exitSuccess
}

// dispatch runs one subcommand against client. JSON input comes from -file or stdin.
func dispatch(ctx context.Context, client submitter, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	file := fs.String("file", "", "JSON input file (default stdin)")
	topic := fs.String("topic", "", "topic id (topic-vector only)")

	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	switch args[0] {
	case "interaction":
		var event engine.InteractionEvent
		if err := decodeInput(*file, stdin, &event); err != nil {
			return err
		}

		if err := client.SubmitInteraction(ctx, event); err != nil {
			return fmt.Errorf("submit interaction: %w", err)
		}

		fmt.Fprintln(stdout, "Interaction queued.")

	case "quiz":
		var sub engine.QuizSubmission
		if err := decodeInput(*file, stdin, &sub); err != nil {
			return err
		}

		result, err := client.SubmitQuiz(ctx, &sub)
		if err != nil {
			return fmt.Errorf("submit quiz: %w", err)
		}

		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("write result: %w", err)
		}

	case "topic-vector":
		topicID, err := uuid.Parse(*topic)
		if err != nil {
			return fmt.Errorf("%w: -topic must be a UUID", errUsage)
		}

		if err := client.SubmitTopicVector(ctx, topicID); err != nil {
			return fmt.Errorf("submit topic vector: %w", err)
		}

		fmt.Fprintln(stdout, "Topic vector job queued.")

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	return nil
}

func decodeInput(path string, stdin io.Reader, v any) error {
	r := stdin

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()

		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}

	return nil
}

func getEnvAsInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultValue
	}

	return n
}
