package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/learnhub/engine/pkg/embeddings"
)

// StudentKnowledgeVector is the recency-weighted blend of every content vector a student
// produced in a workspace.
type StudentKnowledgeVector struct {
	StudentID   uuid.UUID `json:"student_id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Vector      []float32 `json:"vector"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ClassroomAggregate holds the undivided sum of sampled content vectors for a classroom
// and the number of samples folded into it.
type ClassroomAggregate struct {
	ClassroomID  uuid.UUID `json:"classroom_id"`
	SumVector    []float32 `json:"sum_vector"`
	StudentCount int64     `json:"student_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Centroid returns SumVector / StudentCount, or ok=false when nothing has been folded in.
func (a *ClassroomAggregate) Centroid() ([]float32, bool) {
	if a == nil {
		return nil, false
	}

	return embeddings.Centroid(a.SumVector, a.StudentCount)
}
