package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/learnhub/engine/internal/datatypes"
	"github.com/learnhub/engine/internal/huberrors"
	"github.com/learnhub/engine/internal/models"
)

// InteractionsRepository writes the student-side interaction log and the classroom-side
// running averages.
type InteractionsRepository struct {
	db *pgxpool.Pool
}

// NewInteractionsRepository creates a new interactions repository.
func NewInteractionsRepository(db *pgxpool.Pool) *InteractionsRepository {
	return &InteractionsRepository{db: db}
}

// AppendStudentEntry inserts one append-only entry. A nil ID is replaced with a UUIDv7.
func (r *InteractionsRepository) AppendStudentEntry(ctx context.Context, entry *models.InteractionEntry) error {
	if entry.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate entry id: %w", err)
		}

		entry.ID = id
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO student_interaction_entries (
			id, student_id, workspace_id, topic_id, subject_id, source_type, vector, mastery_signal, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING created_at`,
		entry.ID, entry.StudentID, entry.WorkspaceID, entry.TopicID, entry.SubjectID, entry.SourceType.String(),
		pgvector.NewVector(entry.Vector), entry.MasterySignal, nullableJSON(entry.Metadata),
	).Scan(&entry.CreatedAt)
	if err != nil {
		return huberrors.NewStoreWriteError("student entry append", err)
	}

	return nil
}

// CountStudentEntries returns how many entries a student has in a workspace.
func (r *InteractionsRepository) CountStudentEntries(ctx context.Context, studentID, workspaceID uuid.UUID) (int64, error) {
	var n int64

	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM student_interaction_entries WHERE student_id = $1 AND workspace_id = $2`,
		studentID, workspaceID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count student entries: %w", err)
	}

	return n, nil
}

// MergeClassroomSample folds one event into the (classroom, topic, source type) running average:
// avg += (x - avg) / (n + 1). The signal average only advances for events that carry a signal.
func (r *InteractionsRepository) MergeClassroomSample(
	ctx context.Context, sample *models.ClassroomInteractionSample,
) (*models.ClassroomInteractionAggregate, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO classroom_interaction_aggregates AS a (
			classroom_id, topic_id, source_type, average_vector, average_signal, entry_count, signal_count, updated_at
		) VALUES ($1, $2, $3, $4, $5::double precision, 1, CASE WHEN $5::double precision IS NULL THEN 0 ELSE 1 END, NOW())
		ON CONFLICT (classroom_id, topic_id, source_type) DO UPDATE SET
			average_vector = a.average_vector + (EXCLUDED.average_vector - a.average_vector)
				* array_fill((1.0 / (a.entry_count + 1))::real, ARRAY[vector_dims(a.average_vector)])::vector,
			average_signal = CASE
				WHEN EXCLUDED.average_signal IS NULL THEN a.average_signal
				WHEN a.average_signal IS NULL THEN EXCLUDED.average_signal
				ELSE a.average_signal + (EXCLUDED.average_signal - a.average_signal) / (a.signal_count + 1)
			END,
			entry_count = a.entry_count + 1,
			signal_count = a.signal_count + CASE WHEN EXCLUDED.average_signal IS NULL THEN 0 ELSE 1 END,
			updated_at = NOW()
		RETURNING classroom_id, topic_id, source_type, average_vector, average_signal, entry_count, signal_count, updated_at`,
		sample.ClassroomID, sample.TopicID, sample.SourceType.String(),
		pgvector.NewVector(sample.Vector), sample.MasterySignal,
	)

	agg, err := scanClassroomInteraction(row)
	if err != nil {
		return nil, huberrors.NewStoreWriteError("classroom interaction merge", err)
	}

	return agg, nil
}

// GetClassroomInteraction returns the running average for one key.
func (r *InteractionsRepository) GetClassroomInteraction(
	ctx context.Context, classroomID uuid.UUID, topicID *uuid.UUID, sourceType datatypes.SourceType,
) (*models.ClassroomInteractionAggregate, error) {
	row := r.db.QueryRow(ctx, `
		SELECT classroom_id, topic_id, source_type, average_vector, average_signal, entry_count, signal_count, updated_at
		FROM classroom_interaction_aggregates
		WHERE classroom_id = $1 AND topic_id IS NOT DISTINCT FROM $2 AND source_type = $3`,
		classroomID, topicID, sourceType.String(),
	)

	agg, err := scanClassroomInteraction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NewNotFoundError("classroom interaction", "classroom interaction aggregate not found")
		}

		return nil, fmt.Errorf("get classroom interaction: %w", err)
	}

	return agg, nil
}

func scanClassroomInteraction(row pgx.Row) (*models.ClassroomInteractionAggregate, error) {
	var (
		agg        models.ClassroomInteractionAggregate
		sourceType string
		avg        pgvector.Vector
	)

	if err := row.Scan(
		&agg.ClassroomID, &agg.TopicID, &sourceType, &avg, &agg.AverageSignal,
		&agg.EntryCount, &agg.SignalCount, &agg.UpdatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with the operation name
	}

	st, err := datatypes.ParseSourceType(sourceType)
	if err != nil {
		return nil, fmt.Errorf("classroom interaction source type: %w", err)
	}

	agg.SourceType = st
	agg.AverageVector = avg.Slice()

	return &agg, nil
}

func nullableJSON(data []byte) any {
	if len(data) == 0 {
		return nil
	}

	return data
}
