package models

import (
	"time"

	"github.com/google/uuid"
)

// Topic is the slice of a syllabus topic this engine reads: identity, hierarchy and the
// reference vector derived from its name and description.
type Topic struct {
	ID              uuid.UUID  `json:"id"`
	SubjectID       uuid.UUID  `json:"subject_id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	ReferenceVector []float32  `json:"reference_vector,omitempty"`
	VectorUpdatedAt *time.Time `json:"vector_updated_at,omitempty"`
}

// TopicReferenceVector is a topic's comparison target for splash propagation.
type TopicReferenceVector struct {
	TopicID uuid.UUID `json:"topic_id"`
	Vector  []float32 `json:"vector"`
}

// TopicContext is the resolved hierarchy around an interaction. Nil fields mean
// "unknown", which skips the steps that need them.
type TopicContext struct {
	TopicID     *uuid.UUID `json:"topic_id,omitempty"`
	SubjectID   *uuid.UUID `json:"subject_id,omitempty"`
	ClassroomID *uuid.UUID `json:"classroom_id,omitempty"`
}

// TopicHierarchy is the row returned when resolving a topic to its subject and classroom.
type TopicHierarchy struct {
	TopicID     uuid.UUID
	SubjectID   uuid.UUID
	ClassroomID *uuid.UUID
}

// SplashResult is a topic whose reference vector is close to an interaction's content.
type SplashResult struct {
	TopicID    uuid.UUID `json:"topic_id"`
	Similarity float64   `json:"similarity"`
}
