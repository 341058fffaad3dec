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

// TopicsRepository reads the syllabus hierarchy and writes topic reference vectors.
type TopicsRepository struct {
	db *pgxpool.Pool
}

// NewTopicsRepository creates a new topics repository.
func NewTopicsRepository(db *pgxpool.Pool) *TopicsRepository {
	return &TopicsRepository{db: db}
}

// GetByID returns a topic with its reference vector (nil when not generated yet).
func (r *TopicsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Topic, error) {
	var (
		topic models.Topic
		vec   *pgvector.Vector
	)

	err := r.db.QueryRow(ctx, `
		SELECT id, subject_id, name, description, reference_vector, vector_updated_at
		FROM topics WHERE id = $1`, id,
	).Scan(&topic.ID, &topic.SubjectID, &topic.Name, &topic.Description, &vec, &topic.VectorUpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.TopicNotFound(id.String())
		}

		return nil, fmt.Errorf("get topic: %w", err)
	}

	if vec != nil {
		topic.ReferenceVector = vec.Slice()
	}

	return &topic, nil
}

// ResolveHierarchy returns the topic's subject and the subject's classroom in one JOIN.
func (r *TopicsRepository) ResolveHierarchy(ctx context.Context, topicID uuid.UUID) (*models.TopicHierarchy, error) {
	var h models.TopicHierarchy

	err := r.db.QueryRow(ctx, `
		SELECT t.id, t.subject_id, s.classroom_id
		FROM topics t
		INNER JOIN subjects s ON s.id = t.subject_id
		WHERE t.id = $1`, topicID,
	).Scan(&h.TopicID, &h.SubjectID, &h.ClassroomID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.TopicNotFound(topicID.String())
		}

		return nil, fmt.Errorf("resolve topic hierarchy: %w", err)
	}

	return &h, nil
}

// GetSubjectClassroom returns the classroom a subject belongs to (nil when the subject has none).
func (r *TopicsRepository) GetSubjectClassroom(ctx context.Context, subjectID uuid.UUID) (*uuid.UUID, error) {
	var classroomID *uuid.UUID

	err := r.db.QueryRow(ctx,
		`SELECT classroom_id FROM subjects WHERE id = $1`, subjectID,
	).Scan(&classroomID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.SubjectNotFound(subjectID.String())
		}

		return nil, fmt.Errorf("get subject classroom: %w", err)
	}

	return classroomID, nil
}

// ListReferenceVectorsBySubject returns the reference vectors of a subject's topics,
// skipping topics whose vector has not been generated.
func (r *TopicsRepository) ListReferenceVectorsBySubject(
	ctx context.Context, subjectID uuid.UUID,
) ([]models.TopicReferenceVector, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, reference_vector
		FROM topics
		WHERE subject_id = $1 AND reference_vector IS NOT NULL
		ORDER BY id`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list topic reference vectors: %w", err)
	}
	defer rows.Close()

	var out []models.TopicReferenceVector

	for rows.Next() {
		var (
			ref models.TopicReferenceVector
			vec pgvector.Vector
		)

		if err := rows.Scan(&ref.TopicID, &vec); err != nil {
			return nil, fmt.Errorf("scan topic reference vector: %w", err)
		}

		ref.Vector = vec.Slice()
		out = append(out, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating topic reference vectors: %w", err)
	}

	return out, nil
}

// UpdateReferenceVector stores a regenerated reference vector and returns the topic's subject.
func (r *TopicsRepository) UpdateReferenceVector(
	ctx context.Context, topicID uuid.UUID, vec []float32,
) (uuid.UUID, error) {
	var subjectID uuid.UUID

	err := r.db.QueryRow(ctx, `
		UPDATE topics SET reference_vector = $2, vector_updated_at = NOW()
		WHERE id = $1
		RETURNING subject_id`,
		topicID, pgvector.NewVector(vec),
	).Scan(&subjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, huberrors.TopicNotFound(topicID.String())
		}

		return uuid.Nil, huberrors.NewStoreWriteError("topic reference vector update", err)
	}

	return subjectID, nil
}

// ListIDsMissingReferenceVector returns up to limit topic IDs without a reference vector, oldest first.
func (r *TopicsRepository) ListIDsMissingReferenceVector(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id FROM topics
		WHERE reference_vector IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list topics missing vectors: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("collect topic ids: %w", err)
	}

	return ids, nil
}
