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

type quizResultApplier interface {
	ApplyQuizResult(ctx context.Context, quizID, studentID, workspaceID uuid.UUID) (int, error)
}

// GradedMasteryWorker applies a graded quiz result to the student's mastery records.
type GradedMasteryWorker struct {
	river.WorkerDefaults[service.GradedMasteryArgs]

	mastery quizResultApplier
}

// NewGradedMasteryWorker creates the worker.
func NewGradedMasteryWorker(mastery quizResultApplier) *GradedMasteryWorker {
	return &GradedMasteryWorker{mastery: mastery}
}

const gradedMasteryTimeout = 30 * time.Second

// Timeout limits how long a single update can run.
func (w *GradedMasteryWorker) Timeout(*river.Job[service.GradedMasteryArgs]) time.Duration {
	return gradedMasteryTimeout
}

// Work applies the result. The update is not idempotent, so it is only retried when no topic
// was written yet; a partial failure is logged and the job completes.
func (w *GradedMasteryWorker) Work(ctx context.Context, job *river.Job[service.GradedMasteryArgs]) error {
	ctx = observability.WithJob(ctx, job.Kind, job.ID)
	args := job.Args

	n, err := w.mastery.ApplyQuizResult(ctx, args.QuizID, args.StudentID, args.WorkspaceID)
	if err == nil {
		slog.InfoContext(ctx, "graded mastery: applied",
			"quiz_id", args.QuizID,
			"student_id", args.StudentID,
			"topics", n,
		)

		return nil
	}

	if errors.Is(err, huberrors.ErrQuizNotFound) {
		slog.WarnContext(ctx, "graded mastery: quiz gone, skipping", "quiz_id", args.QuizID)

		return nil
	}

	if n > 0 || isLastAttempt(job.JobRow.Attempt, job.JobRow.MaxAttempts) {
		slog.ErrorContext(ctx, "graded mastery: update incomplete",
			"quiz_id", args.QuizID,
			"student_id", args.StudentID,
			"topics_updated", n,
			"error", err,
		)

		return nil
	}

	return fmt.Errorf("graded mastery %s: %w", args.QuizID, err)
}
