// Package embeddings defines the text-to-vector contract used by the knowledge engine.
package embeddings

import "context"

// TaskType hints the provider about how the vector will be used.
type TaskType string

// Task types understood by providers that support them; others ignore the hint.
const (
	TaskSemanticSimilarity TaskType = "SEMANTIC_SIMILARITY"
	TaskClassification     TaskType = "CLASSIFICATION"
	TaskRetrievalDocument  TaskType = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery     TaskType = "RETRIEVAL_QUERY"
	TaskClustering         TaskType = "CLUSTERING"
)

// DefaultDimensions is the vector length stored in Postgres (vector(768)).
const DefaultDimensions = 768

// Client converts text into a fixed-length embedding vector.
// Implementations must return an error rather than a zero vector on failure.
type Client interface {
	Embed(ctx context.Context, text string, task TaskType) ([]float32, error)
}

// OrDefault returns t, or TaskSemanticSimilarity when t is empty.
func (t TaskType) OrDefault() TaskType {
	if t == "" {
		return TaskSemanticSimilarity
	}

	return t
}
