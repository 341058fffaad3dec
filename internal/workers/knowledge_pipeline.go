// Package workers provides River job workers for the knowledge engine.
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/learnhub/engine/internal/huberrors"
	"github.com/learnhub/engine/internal/models"
	"github.com/learnhub/engine/internal/observability"
	"github.com/learnhub/engine/internal/service"
)

// pipelineRunner is the minimal interface needed by KnowledgePipelineWorker.
type pipelineRunner interface {
	Run(ctx context.Context, event *models.InteractionEvent) (*models.PipelineReport, error)
}

// KnowledgePipelineWorker runs the knowledge pipeline for one interaction event.
type KnowledgePipelineWorker struct {
	river.WorkerDefaults[service.KnowledgePipelineArgs]

	pipeline pipelineRunner
	timeout  time.Duration
}

const defaultPipelineTimeout = 60 * time.Second

// NewKnowledgePipelineWorker creates the worker. A zero timeout uses one minute.
func NewKnowledgePipelineWorker(pipeline pipelineRunner, timeout time.Duration) *KnowledgePipelineWorker {
	if timeout <= 0 {
		timeout = defaultPipelineTimeout
	}

	return &KnowledgePipelineWorker{pipeline: pipeline, timeout: timeout}
}

// Timeout limits how long a single pipeline run can take, embedding call included.
func (w *KnowledgePipelineWorker) Timeout(*river.Job[service.KnowledgePipelineArgs]) time.Duration {
	return w.timeout
}

// Work runs the pipeline. An invalid event is cancelled; an unavailable embedding is retried
// until the last attempt. Step failures past the embedding are already recorded in the report.
func (w *KnowledgePipelineWorker) Work(ctx context.Context, job *river.Job[service.KnowledgePipelineArgs]) error {
	ctx = observability.WithJob(ctx, job.Kind, job.ID)
	event := job.Args.Event

	_, err := w.pipeline.Run(ctx, &event)
	if err == nil {
		return nil
	}

	if errors.Is(err, huberrors.ErrValidation) {
		slog.WarnContext(ctx, "knowledge pipeline: invalid event, cancelling",
			"event_id", event.ID,
			"error", err,
		)

		return river.JobCancel(err)
	}

	if errors.Is(err, huberrors.ErrEmbeddingUnavailable) && isLastAttempt(job.JobRow.Attempt, job.JobRow.MaxAttempts) {
		slog.ErrorContext(ctx, "knowledge pipeline: embedding unavailable (final attempt)",
			"event_id", event.ID,
			"student_id", event.StudentID,
			"error", err,
		)

		return nil
	}

	return fmt.Errorf("knowledge pipeline %s: %w", event.ID, err)
}

func isLastAttempt(attempt, maxAttempts int) bool {
	return maxAttempts > 0 && attempt >= maxAttempts
}
