package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/learnhub/engine/internal/datatypes"
	"github.com/learnhub/engine/internal/huberrors"
)

// InteractionEvent is one learning interaction handed to the knowledge pipeline after the
// triggering record (chat message, homework, quiz analysis) has been stored.
type InteractionEvent struct {
	ID            uuid.UUID            `json:"id"`
	StudentID     uuid.UUID            `json:"student_id"`
	WorkspaceID   uuid.UUID            `json:"workspace_id"`
	TopicID       *uuid.UUID           `json:"topic_id,omitempty"`
	SubjectID     *uuid.UUID           `json:"subject_id,omitempty"`
	ClassroomID   *uuid.UUID           `json:"classroom_id,omitempty"`
	SourceType    datatypes.SourceType `json:"source_type"`
	Text          string               `json:"text"`
	MasterySignal *float64             `json:"mastery_signal,omitempty"`
	Metadata      json.RawMessage      `json:"metadata,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// Validate checks the fields the pipeline cannot run without.
func (e *InteractionEvent) Validate() error {
	if e.StudentID == uuid.Nil {
		return huberrors.NewValidationError("student_id", "student_id is required")
	}

	if e.WorkspaceID == uuid.Nil {
		return huberrors.NewValidationError("workspace_id", "workspace_id is required")
	}

	if !e.SourceType.Valid() {
		return huberrors.NewValidationError("source_type", "source_type is invalid")
	}

	if strings.TrimSpace(e.Text) == "" {
		return huberrors.NewValidationError("text", "text is required")
	}

	if e.MasterySignal != nil && (*e.MasterySignal < 0 || *e.MasterySignal > 1) {
		return huberrors.NewValidationError("mastery_signal", "mastery_signal must be within [0, 1]")
	}

	return nil
}

// InteractionEntry is an append-only student-side log row.
type InteractionEntry struct {
	ID            uuid.UUID            `json:"id"`
	StudentID     uuid.UUID            `json:"student_id"`
	WorkspaceID   uuid.UUID            `json:"workspace_id"`
	TopicID       *uuid.UUID           `json:"topic_id,omitempty"`
	SubjectID     *uuid.UUID           `json:"subject_id,omitempty"`
	SourceType    datatypes.SourceType `json:"source_type"`
	Vector        []float32            `json:"vector"`
	MasterySignal *float64             `json:"mastery_signal,omitempty"`
	Metadata      json.RawMessage      `json:"metadata,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// ClassroomInteractionSample is one event folded into the classroom-side running average.
type ClassroomInteractionSample struct {
	ClassroomID   uuid.UUID
	TopicID       *uuid.UUID
	SourceType    datatypes.SourceType
	Vector        []float32
	MasterySignal *float64
}

// ClassroomInteractionAggregate is the running average per (classroom, topic, source type).
// AverageSignal only counts events that carried a signal.
type ClassroomInteractionAggregate struct {
	ClassroomID   uuid.UUID            `json:"classroom_id"`
	TopicID       *uuid.UUID           `json:"topic_id,omitempty"`
	SourceType    datatypes.SourceType `json:"source_type"`
	AverageVector []float32            `json:"average_vector"`
	AverageSignal *float64             `json:"average_signal,omitempty"`
	EntryCount    int64                `json:"entry_count"`
	SignalCount   int64                `json:"signal_count"`
	UpdatedAt     time.Time            `json:"updated_at"`
}
