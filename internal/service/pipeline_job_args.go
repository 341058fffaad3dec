package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/learnhub/engine/internal/models"
)

// River job kinds.
const (
	KnowledgePipelineKind = "knowledge_pipeline"
	TopicVectorKind       = "topic_vector"
	GradedMasteryKind     = "graded_mastery"
)

// River queues.
const (
	// KnowledgeQueueName carries interaction pipelines and graded mastery updates.
	KnowledgeQueueName = "knowledge"
	// TopicVectorsQueueName carries topic reference vector regeneration.
	TopicVectorsQueueName = "topic_vectors"
)

// JobInserter inserts jobs (e.g. the River client).
type JobInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// KnowledgePipelineArgs carries one interaction event through the queue.
type KnowledgePipelineArgs struct {
	Event models.InteractionEvent `json:"event"`
}

// Kind returns the River job kind.
func (KnowledgePipelineArgs) Kind() string { return KnowledgePipelineKind }

// TopicVectorArgs asks for a topic's reference vector to be regenerated from its stored text.
type TopicVectorArgs struct {
	TopicID uuid.UUID `json:"topic_id"`
}

// Kind returns the River job kind.
func (TopicVectorArgs) Kind() string { return TopicVectorKind }

// GradedMasteryArgs applies a graded quiz to the student's mastery records.
// Unique by quiz: a quiz is graded once, so its mastery update must not run twice.
type GradedMasteryArgs struct {
	QuizID      uuid.UUID `json:"quiz_id"      river:"unique"`
	StudentID   uuid.UUID `json:"student_id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
}

// Kind returns the River job kind.
func (GradedMasteryArgs) Kind() string { return GradedMasteryKind }

var (
	_ river.JobArgs = KnowledgePipelineArgs{}
	_ river.JobArgs = TopicVectorArgs{}
	_ river.JobArgs = GradedMasteryArgs{}
)
