package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/learnhub/engine/internal/huberrors"
	"github.com/learnhub/engine/internal/observability"
	"github.com/learnhub/engine/internal/service"
)

type topicVectorRegenerator interface {
	RegenerateTopicVector(ctx context.Context, topicID uuid.UUID) error
}

// TopicVectorWorker regenerates a topic's reference vector.
type TopicVectorWorker struct {
	river.WorkerDefaults[service.TopicVectorArgs]

	topics topicVectorRegenerator
}

// NewTopicVectorWorker creates the worker.
func NewTopicVectorWorker(topics topicVectorRegenerator) *TopicVectorWorker {
	return &TopicVectorWorker{topics: topics}
}

const topicVectorTimeout = 30 * time.Second

// Timeout limits how long a single regeneration can run.
func (w *TopicVectorWorker) Timeout(*river.Job[service.TopicVectorArgs]) time.Duration {
	return topicVectorTimeout
}

// Work reloads the topic and regenerates its vector.
func (w *TopicVectorWorker) Work(ctx context.Context, job *river.Job[service.TopicVectorArgs]) error {
	ctx = observability.WithJob(ctx, job.Kind, job.ID)
	topicID := job.Args.TopicID

	err := w.topics.RegenerateTopicVector(ctx, topicID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, huberrors.ErrNotFound):
		slog.WarnContext(ctx, "topic vector: topic gone, skipping", "topic_id", topicID)

		return nil // deleted since enqueue
	case errors.Is(err, huberrors.ErrValidation):
		return river.JobCancel(err)
	case isLastAttempt(job.JobRow.Attempt, job.JobRow.MaxAttempts):
		slog.ErrorContext(ctx, "topic vector: failed (final attempt)",
			"topic_id", topicID,
			"error", err,
		)

		return nil
	default:
		return fmt.Errorf("regenerate topic vector %s: %w", topicID, err)
	}
}
