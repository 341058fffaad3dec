package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/learnhub/engine/internal/huberrors"
	"github.com/learnhub/engine/internal/observability"
)

// ErrorHandler logs job errors and panics. Validation errors that slipped past a worker are
// cancelled since retrying cannot fix them.
type ErrorHandler struct{}

// HandleError is called when a job returns an error.
func (h *ErrorHandler) HandleError(ctx context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	ctx = observability.WithJob(ctx, job.Kind, job.ID)

	slog.ErrorContext(ctx, "job failed",
		"attempt", job.Attempt,
		"max_attempts", job.MaxAttempts,
		"error", err,
	)

	if errors.Is(err, huberrors.ErrValidation) {
		return &river.ErrorHandlerResult{SetCancelled: true}
	}

	return nil
}

// HandlePanic is called when a job panics.
func (h *ErrorHandler) HandlePanic(
	ctx context.Context, job *rivertype.JobRow, panicVal any, trace string,
) *river.ErrorHandlerResult {
	ctx = observability.WithJob(ctx, job.Kind, job.ID)

	slog.ErrorContext(ctx, "job panicked",
		"attempt", job.Attempt,
		"panic_value", panicVal,
		"stack_trace", trace,
	)

	return nil
}

var _ river.ErrorHandler = (*ErrorHandler)(nil)
