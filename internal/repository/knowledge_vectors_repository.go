package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/learnhub/engine/internal/huberrors"
	"github.com/learnhub/engine/internal/models"
)

// ErrClassroomAggregateNotFound is returned when a classroom has no aggregate row yet.
var ErrClassroomAggregateNotFound = huberrors.NewNotFoundError("classroom aggregate", "classroom aggregate not found")

// ErrStudentVectorNotFound is returned when a student has no knowledge vector in a workspace yet.
var ErrStudentVectorNotFound = huberrors.NewNotFoundError("student knowledge vector", "student knowledge vector not found")

// KnowledgeVectorsRepository handles the student and classroom aggregate vectors.
// Every write is a single server-evaluated upsert so concurrent writers never lose updates.
type KnowledgeVectorsRepository struct {
	db *pgxpool.Pool
}

// NewKnowledgeVectorsRepository creates a new knowledge vectors repository.
func NewKnowledgeVectorsRepository(db *pgxpool.Pool) *KnowledgeVectorsRepository {
	return &KnowledgeVectorsRepository{db: db}
}

// BlendStudentVector stores vec as the first layer, or sets vector = vector*oldWeight + vec*newWeight
// against the row as it is at write time.
func (r *KnowledgeVectorsRepository) BlendStudentVector(
	ctx context.Context, studentID, workspaceID uuid.UUID, vec []float32, oldWeight, newWeight float64,
) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO student_knowledge_vectors AS s (student_id, workspace_id, vector, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (student_id, workspace_id) DO UPDATE SET
			vector = s.vector * array_fill($4::float8::real, ARRAY[vector_dims(s.vector)])::vector
			       + EXCLUDED.vector * array_fill($5::float8::real, ARRAY[vector_dims(EXCLUDED.vector)])::vector,
			updated_at = NOW()`,
		studentID, workspaceID, pgvector.NewVector(vec), oldWeight, newWeight,
	)
	if err != nil {
		return huberrors.NewStoreWriteError("student vector blend", err)
	}

	return nil
}

// GetStudentVector returns the stored student vector.
func (r *KnowledgeVectorsRepository) GetStudentVector(
	ctx context.Context, studentID, workspaceID uuid.UUID,
) (*models.StudentKnowledgeVector, error) {
	var (
		row models.StudentKnowledgeVector
		vec pgvector.Vector
	)

	err := r.db.QueryRow(ctx, `
		SELECT student_id, workspace_id, vector, updated_at
		FROM student_knowledge_vectors
		WHERE student_id = $1 AND workspace_id = $2`,
		studentID, workspaceID,
	).Scan(&row.StudentID, &row.WorkspaceID, &vec, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentVectorNotFound
		}

		return nil, fmt.Errorf("get student vector: %w", err)
	}

	row.Vector = vec.Slice()

	return &row, nil
}

// GetClassroomStudentCount returns the aggregate's student_count, or ErrClassroomAggregateNotFound.
func (r *KnowledgeVectorsRepository) GetClassroomStudentCount(ctx context.Context, classroomID uuid.UUID) (int64, error) {
	var count int64

	err := r.db.QueryRow(ctx,
		`SELECT student_count FROM classroom_aggregates WHERE classroom_id = $1`, classroomID,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrClassroomAggregateNotFound
		}

		return 0, fmt.Errorf("get classroom student count: %w", err)
	}

	return count, nil
}

// GetClassroomAggregate returns the undivided sum and count for a classroom.
func (r *KnowledgeVectorsRepository) GetClassroomAggregate(
	ctx context.Context, classroomID uuid.UUID,
) (*models.ClassroomAggregate, error) {
	var (
		agg models.ClassroomAggregate
		sum pgvector.Vector
	)

	err := r.db.QueryRow(ctx, `
		SELECT classroom_id, sum_vector, student_count, updated_at
		FROM classroom_aggregates WHERE classroom_id = $1`, classroomID,
	).Scan(&agg.ClassroomID, &sum, &agg.StudentCount, &agg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClassroomAggregateNotFound
		}

		return nil, fmt.Errorf("get classroom aggregate: %w", err)
	}

	agg.SumVector = sum.Slice()

	return &agg, nil
}

// AddToClassroomAggregate sets sum_vector += delta and student_count += 1 in one statement,
// creating the row with (delta, 1) on first write. Returns the new count.
func (r *KnowledgeVectorsRepository) AddToClassroomAggregate(
	ctx context.Context, classroomID uuid.UUID, delta []float32,
) (int64, error) {
	var count int64

	err := r.db.QueryRow(ctx, `
		INSERT INTO classroom_aggregates AS c (classroom_id, sum_vector, student_count, created_at, updated_at)
		VALUES ($1, $2, 1, NOW(), NOW())
		ON CONFLICT (classroom_id) DO UPDATE SET
			sum_vector = c.sum_vector + EXCLUDED.sum_vector,
			student_count = c.student_count + 1,
			updated_at = NOW()
		RETURNING student_count`,
		classroomID, pgvector.NewVector(delta),
	).Scan(&count)
	if err != nil {
		return 0, huberrors.NewStoreWriteError("classroom aggregate add", err)
	}

	return count, nil
}
