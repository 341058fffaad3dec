package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

const (
	defaultInitialBackoff = 200 * time.Millisecond
	backoffMultiplier     = 2
)

// RetryingJobInserterConfig holds configuration for RetryingJobInserter.
type RetryingJobInserterConfig struct {
	MaxRetries     int           // total attempts = 1 + MaxRetries
	InitialBackoff time.Duration // doubles each attempt, capped by MaxBackoff
	MaxBackoff     time.Duration
}

// RetryingJobInserter retries Insert on transient River or database errors with exponential
// backoff and jitter.
type RetryingJobInserter struct {
	inner          JobInserter
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewRetryingJobInserter wraps inner.
func NewRetryingJobInserter(inner JobInserter, cfg RetryingJobInserterConfig) *RetryingJobInserter {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}

	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}

	return &RetryingJobInserter{
		inner:          inner,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
	}
}

// Insert calls the inner inserter, retrying up to maxRetries times. Context cancellation
// during backoff ends the loop.
func (r *RetryingJobInserter) Insert(
	ctx context.Context, args river.JobArgs, opts *river.InsertOpts,
) (*rivertype.JobInsertResult, error) {
	var lastErr error

	backoff := r.initialBackoff

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		res, err := r.inner.Insert(ctx, args, opts)
		if err == nil {
			return res, nil
		}

		lastErr = err

		if attempt == r.maxRetries {
			break
		}

		sleep := jitter(backoff)
		slog.WarnContext(ctx, "job enqueue failed, retrying after backoff",
			"kind", args.Kind(),
			"attempt", attempt+1,
			"max_attempts", r.maxRetries+1,
			"backoff", sleep,
			"error", err,
		)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()

			return nil, fmt.Errorf("backoff interrupted: %w", ctx.Err())
		case <-timer.C:
		}

		backoff = min(backoff*backoffMultiplier, r.maxBackoff)
	}

	return nil, lastErr
}

// jitter returns a duration between 50% and 100% of d.
func jitter(d time.Duration) time.Duration {
	half := d / 2
	if half <= 0 {
		return d
	}

	return half + rand.N(half)
}

var _ JobInserter = (*RetryingJobInserter)(nil)
