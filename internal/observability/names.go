// Package observability provides OpenTelemetry metrics, tracing and log enrichment for the knowledge engine.
package observability

// Metric names (OpenTelemetry, exported over OTLP).
const (
	MetricNameEmbeddingRequests    = "engine_embedding_requests_total"
	MetricNameEmbeddingDuration    = "engine_embedding_duration_seconds"
	MetricNameJobsEnqueued         = "engine_jobs_enqueued_total"
	MetricNameEnqueueErrors        = "engine_enqueue_errors_total"
	MetricNamePipelineStepOutcomes = "engine_pipeline_step_outcomes_total"
	MetricNamePipelineDuration     = "engine_pipeline_duration_seconds"
	MetricNameClassroomSampling    = "engine_classroom_sampling_decisions_total"
	MetricNameSplashTopics         = "engine_splash_topics"
	MetricNameMasteryUpdates       = "engine_mastery_updates_total"
	MetricNameRiverQueueDepth      = "engine_river_queue_depth"

	MetricNameTopicVectorCacheLookups  = "engine_topic_vector_cache_lookups_total"
	MetricNameTopicVectorSubjectSize   = "engine_topic_vector_cache_subject_topics"
	MetricNameTopicVectorsMissing      = "engine_topic_vectors_missing_total"
	MetricNameTopicVectorInvalidations = "engine_topic_vector_cache_invalidations_total"
)

// Attribute keys.
const (
	AttrStatus   = "status"
	AttrReason   = "reason"
	AttrKind     = "kind"
	AttrStep     = "step"
	AttrOutcome  = "outcome"
	AttrDecision = "decision"
	AttrPath     = "path"
	AttrResult   = "result"
)

// AllowedEmbeddingStatuses for engine_embedding_requests_total and engine_embedding_duration_seconds.
var AllowedEmbeddingStatuses = map[string]bool{
	"success":            true,
	"failed":             true,
	"timeout":            true,
	"rate_limited":       true,
	"dimension_mismatch": true,
}

// AllowedJobKinds for engine_jobs_enqueued_total and engine_enqueue_errors_total.
var AllowedJobKinds = map[string]bool{
	"knowledge_pipeline": true,
	"topic_vector":       true,
	"graded_mastery":     true,
}

// AllowedPipelineSteps for engine_pipeline_step_outcomes_total.
var AllowedPipelineSteps = map[string]bool{
	"resolve_context":       true,
	"embed":                 true,
	"student_entry":         true,
	"splash":                true,
	"mastery":               true,
	"student_dna":           true,
	"classroom_interaction": true,
	"classroom_dna":         true,
}

// AllowedStepOutcomes for engine_pipeline_step_outcomes_total.
var AllowedStepOutcomes = map[string]bool{
	"applied":     true,
	"skipped":     true,
	"sampled_out": true,
	"failed":      true,
}

// AllowedPipelineStatuses for engine_pipeline_duration_seconds.
var AllowedPipelineStatuses = map[string]bool{
	"completed":             true,
	"partial":               true,
	"embedding_unavailable": true,
	"invalid":               true,
}

// AllowedMasteryPaths for engine_mastery_updates_total.
var AllowedMasteryPaths = map[string]bool{
	"splash": true,
	"graded": true,
}

// NormalizeReason returns reason if in allowed, otherwise "other".
func NormalizeReason(reason string, allowed map[string]bool) string {
	if allowed[reason] {
		return reason
	}

	return "other"
}
