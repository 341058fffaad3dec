package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EmbeddingMetrics records embedding provider calls.
// Methods accept ctx for future exemplar support.
type EmbeddingMetrics interface {
	RecordEmbeddingRequest(ctx context.Context, status string)
	RecordEmbeddingDuration(ctx context.Context, duration time.Duration, status string)
}

type embeddingMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewEmbeddingMetrics creates EmbeddingMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewEmbeddingMetrics(meter metric.Meter) (EmbeddingMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	requests, err := meter.Int64Counter(
		MetricNameEmbeddingRequests,
		metric.WithDescription("Embedding provider calls by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding requests counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameEmbeddingDuration,
		metric.WithDescription("Embedding provider call duration (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding duration histogram: %w", err)
	}

	return &embeddingMetrics{requests: requests, duration: duration}, nil
}

func attrEmbeddingStatus(status string) attribute.KeyValue {
	return attribute.String(AttrStatus, NormalizeReason(status, AllowedEmbeddingStatuses))
}

func (e *embeddingMetrics) RecordEmbeddingRequest(ctx context.Context, status string) {
	e.requests.Add(ctx, 1, metric.WithAttributes(attrEmbeddingStatus(status)))
}

func (e *embeddingMetrics) RecordEmbeddingDuration(ctx context.Context, duration time.Duration, status string) {
	e.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrEmbeddingStatus(status)))
}
