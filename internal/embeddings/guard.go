package embeddings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/learnhub/engine/internal/huberrors"
	"github.com/learnhub/engine/internal/observability"
	pkgembeddings "github.com/learnhub/engine/pkg/embeddings"
)

// ErrDimensionMismatch is returned when a provider returns a vector of the wrong length.
var ErrDimensionMismatch = errors.New("embeddings: dimension mismatch")

// GuardConfig configures a Guard.
type GuardConfig struct {
	// Provider is used in errors and logs (google, openai, mock).
	Provider   string
	Timeout    time.Duration
	Dimensions int
	// RatePerSecond <= 0 disables limiting.
	RatePerSecond float64
	Metrics       observability.EmbeddingMetrics
}

// Guard wraps a provider Client with a per-call timeout, a process-wide rate limit and a
// dimension check. Every failure comes back as *huberrors.EmbeddingUnavailableError.
type Guard struct {
	inner      Client
	provider   string
	timeout    time.Duration
	dimensions int
	limiter    *rate.Limiter
	metrics    observability.EmbeddingMetrics
}

// NewGuard wraps inner. A zero Timeout means no deadline beyond the caller's context.
func NewGuard(inner Client, cfg GuardConfig) *Guard {
	g := &Guard{
		inner:      inner,
		provider:   cfg.Provider,
		timeout:    cfg.Timeout,
		dimensions: cfg.Dimensions,
		metrics:    cfg.Metrics,
	}

	if cfg.RatePerSecond > 0 {
		burst := max(1, int(cfg.RatePerSecond))
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	return g
}

// Embed calls the wrapped client once.
func (g *Guard) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, g.fail(ctx, start, "rate_limited", err)
		}
	}

	vec, err := g.inner.Embed(ctx, text, task.OrDefault())
	if err != nil {
		status := "failed"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}

		return nil, g.fail(ctx, start, status, err)
	}

	if g.dimensions > 0 && len(vec) != g.dimensions {
		err = fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), g.dimensions)

		return nil, g.fail(ctx, start, "dimension_mismatch", err)
	}

	if pkgembeddings.IsZero(vec) {
		return nil, g.fail(ctx, start, "failed", errors.New("embeddings: provider returned a zero vector"))
	}

	g.record(ctx, start, "success")

	return vec, nil
}

func (g *Guard) fail(ctx context.Context, start time.Time, status string, err error) error {
	g.record(ctx, start, status)

	slog.WarnContext(ctx, "embeddings: call failed",
		"provider", g.provider,
		"status", status,
		"error", err,
	)

	return huberrors.NewEmbeddingUnavailableError(g.provider, err)
}

func (g *Guard) record(ctx context.Context, start time.Time, status string) {
	if g.metrics == nil {
		return
	}

	g.metrics.RecordEmbeddingRequest(ctx, status)
	g.metrics.RecordEmbeddingDuration(ctx, time.Since(start), status)
}

var _ Client = (*Guard)(nil)
