package observability

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics records knowledge pipeline, job scheduling and mastery update metrics.
type PipelineMetrics interface {
	RecordJobsEnqueued(ctx context.Context, kind string, count int64)
	RecordEnqueueError(ctx context.Context, kind string)
	RecordStepOutcome(ctx context.Context, step, outcome string)
	RecordPipelineDuration(ctx context.Context, duration time.Duration, status string)
	RecordSamplingDecision(ctx context.Context, applied bool)
	RecordSplashTopics(ctx context.Context, count int)
	RecordMasteryUpdate(ctx context.Context, path, status string)
	SetRiverQueueDepth(depth int)
}

type pipelineMetrics struct {
	jobsEnqueued    metric.Int64Counter
	enqueueErrors   metric.Int64Counter
	stepOutcomes    metric.Int64Counter
	duration        metric.Float64Histogram
	sampling        metric.Int64Counter
	splashTopics    metric.Int64Histogram
	masteryUpdates  metric.Int64Counter
	riverQueueDepth atomic.Int64
}

// NewPipelineMetrics creates PipelineMetrics and registers the queue depth gauge.
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewPipelineMetrics(meter metric.Meter) (PipelineMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	m := &pipelineMetrics{}

	var err error

	m.jobsEnqueued, err = meter.Int64Counter(
		MetricNameJobsEnqueued,
		metric.WithDescription("Background jobs enqueued by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("create jobs enqueued counter: %w", err)
	}

	m.enqueueErrors, err = meter.Int64Counter(
		MetricNameEnqueueErrors,
		metric.WithDescription("Background job enqueue failures by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("create enqueue errors counter: %w", err)
	}

	m.stepOutcomes, err = meter.Int64Counter(
		MetricNamePipelineStepOutcomes,
		metric.WithDescription("Knowledge pipeline step outcomes"),
	)
	if err != nil {
		return nil, fmt.Errorf("create step outcomes counter: %w", err)
	}

	m.duration, err = meter.Float64Histogram(
		MetricNamePipelineDuration,
		metric.WithDescription("Knowledge pipeline run duration (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create pipeline duration histogram: %w", err)
	}

	m.sampling, err = meter.Int64Counter(
		MetricNameClassroomSampling,
		metric.WithDescription("Classroom aggregate sampling decisions (applied, skipped)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sampling counter: %w", err)
	}

	m.splashTopics, err = meter.Int64Histogram(
		MetricNameSplashTopics,
		metric.WithDescription("Topics above the splash threshold per interaction"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 5, 8, 13, 21),
	)
	if err != nil {
		return nil, fmt.Errorf("create splash topics histogram: %w", err)
	}

	m.masteryUpdates, err = meter.Int64Counter(
		MetricNameMasteryUpdates,
		metric.WithDescription("Mastery record updates by path and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create mastery updates counter: %w", err)
	}

	_, err = meter.Int64ObservableGauge(
		MetricNameRiverQueueDepth,
		metric.WithDescription("River jobs waiting to run (available, retryable, scheduled)"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(m.riverQueueDepth.Load())

			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create river queue depth gauge: %w", err)
	}

	return m, nil
}

func (m *pipelineMetrics) RecordJobsEnqueued(ctx context.Context, kind string, count int64) {
	m.jobsEnqueued.Add(ctx, count, metric.WithAttributes(
		attribute.String(AttrKind, NormalizeReason(kind, AllowedJobKinds)),
	))
}

func (m *pipelineMetrics) RecordEnqueueError(ctx context.Context, kind string) {
	m.enqueueErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrKind, NormalizeReason(kind, AllowedJobKinds)),
	))
}

func (m *pipelineMetrics) RecordStepOutcome(ctx context.Context, step, outcome string) {
	m.stepOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStep, NormalizeReason(step, AllowedPipelineSteps)),
		attribute.String(AttrOutcome, NormalizeReason(outcome, AllowedStepOutcomes)),
	))
}

func (m *pipelineMetrics) RecordPipelineDuration(ctx context.Context, duration time.Duration, status string) {
	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrStatus, NormalizeReason(status, AllowedPipelineStatuses)),
	))
}

func (m *pipelineMetrics) RecordSamplingDecision(ctx context.Context, applied bool) {
	decision := "skipped"
	if applied {
		decision = "applied"
	}

	m.sampling.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrDecision, decision)))
}

func (m *pipelineMetrics) RecordSplashTopics(ctx context.Context, count int) {
	m.splashTopics.Record(ctx, int64(count))
}

func (m *pipelineMetrics) RecordMasteryUpdate(ctx context.Context, path, status string) {
	if status != "success" {
		status = "failed"
	}

	m.masteryUpdates.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrPath, NormalizeReason(path, AllowedMasteryPaths)),
		attribute.String(AttrStatus, status),
	))
}

func (m *pipelineMetrics) SetRiverQueueDepth(depth int) {
	m.riverQueueDepth.Store(int64(depth))
}
