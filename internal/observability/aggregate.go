package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all engine metric collectors. When metrics are disabled the whole struct is nil;
// components take the individual interfaces and handle nil.
type Metrics struct {
	Embeddings       EmbeddingMetrics
	Pipeline         PipelineMetrics
	TopicVectorCache TopicVectorCacheMetrics
}

// NewMetrics creates every collector from meter. Returns (nil, nil) when meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	embeddings, err := NewEmbeddingMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("embedding metrics: %w", err)
	}

	pipeline, err := NewPipelineMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("pipeline metrics: %w", err)
	}

	topicVectorCache, err := NewTopicVectorCacheMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("topic vector cache metrics: %w", err)
	}

	return &Metrics{
		Embeddings:       embeddings,
		Pipeline:         pipeline,
		TopicVectorCache: topicVectorCache,
	}, nil
}
