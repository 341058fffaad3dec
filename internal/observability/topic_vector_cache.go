package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// TopicVectorCacheMetrics records how the per-subject reference vector cache behaves:
// lookups by result, subject sizes on load, topics still waiting for a vector, and
// invalidations after regeneration.
type TopicVectorCacheMetrics interface {
	RecordLookup(ctx context.Context, hit bool)
	RecordSubjectLoad(ctx context.Context, topics, missingVectors int)
	RecordInvalidation(ctx context.Context)
}

type topicVectorCacheMetrics struct {
	lookups        metric.Int64Counter
	subjectTopics  metric.Int64Histogram
	missingVectors metric.Int64Counter
	invalidations  metric.Int64Counter
}

// NewTopicVectorCacheMetrics returns (nil, nil) when meter is nil.
func NewTopicVectorCacheMetrics(meter metric.Meter) (TopicVectorCacheMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	m := &topicVectorCacheMetrics{}

	var err error

	m.lookups, err = meter.Int64Counter(
		MetricNameTopicVectorCacheLookups,
		metric.WithDescription("Subject reference vector lookups. Label result: hit, miss."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create topic vector lookups counter: %w", err)
	}

	m.subjectTopics, err = meter.Int64Histogram(
		MetricNameTopicVectorSubjectSize,
		metric.WithDescription("Topics loaded per subject on a cache miss"),
		metric.WithExplicitBucketBoundaries(0, 5, 10, 25, 50, 100, 250, 500),
	)
	if err != nil {
		return nil, fmt.Errorf("create subject topics histogram: %w", err)
	}

	m.missingVectors, err = meter.Int64Counter(
		MetricNameTopicVectorsMissing,
		metric.WithDescription("Loaded topics without a reference vector; they never receive splash"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create missing vectors counter: %w", err)
	}

	m.invalidations, err = meter.Int64Counter(
		MetricNameTopicVectorInvalidations,
		metric.WithDescription("Subject cache entries dropped after a topic vector was regenerated"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create invalidations counter: %w", err)
	}

	return m, nil
}

func (m *topicVectorCacheMetrics) RecordLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}

	m.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrResult, result)))
}

func (m *topicVectorCacheMetrics) RecordSubjectLoad(ctx context.Context, topics, missingVectors int) {
	m.subjectTopics.Record(ctx, int64(topics))

	if missingVectors > 0 {
		m.missingVectors.Add(ctx, int64(missingVectors))
	}
}

func (m *topicVectorCacheMetrics) RecordInvalidation(ctx context.Context) {
	m.invalidations.Add(ctx, 1)
}
