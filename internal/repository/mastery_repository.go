package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/learnhub/engine/internal/huberrors"
	"github.com/learnhub/engine/internal/models"
)

// MasteryRepository stores per-(student, topic) mastery records. Updates are compare-and-swap on
// the version column; creation races resolve through ON CONFLICT DO NOTHING.
type MasteryRepository struct {
	db *pgxpool.Pool
}

// NewMasteryRepository creates a new mastery repository.
func NewMasteryRepository(db *pgxpool.Pool) *MasteryRepository {
	return &MasteryRepository{db: db}
}

const masteryColumns = `student_id, topic_id, workspace_id, subject_id, score, questions_attempted,
	questions_correct, total_quizzes_taken, total_time_spent, last_attempt_at, trend, version,
	created_at, updated_at`

// Get returns the mastery record for (studentID, topicID).
func (r *MasteryRepository) Get(ctx context.Context, studentID, topicID uuid.UUID) (*models.MasteryRecord, error) {
	var (
		rec   models.MasteryRecord
		trend []byte
	)

	err := r.db.QueryRow(ctx,
		`SELECT `+masteryColumns+` FROM mastery_records WHERE student_id = $1 AND topic_id = $2`,
		studentID, topicID,
	).Scan(
		&rec.StudentID, &rec.TopicID, &rec.WorkspaceID, &rec.SubjectID, &rec.Score, &rec.QuestionsAttempted,
		&rec.QuestionsCorrect, &rec.TotalQuizzesTaken, &rec.TotalTimeSpent, &rec.LastAttemptAt, &trend, &rec.Version,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NewNotFoundError(huberrors.ResourceMastery, "mastery record not found")
		}

		return nil, fmt.Errorf("get mastery record: %w", err)
	}

	if err := json.Unmarshal(trend, &rec.Trend); err != nil {
		return nil, fmt.Errorf("decode mastery trend: %w", err)
	}

	return &rec, nil
}

// Create inserts rec with version 1. Returns false when another writer created the row first.
func (r *MasteryRepository) Create(ctx context.Context, rec *models.MasteryRecord) (bool, error) {
	trend, err := encodeTrend(rec.Trend)
	if err != nil {
		return false, err
	}

	tag, err := r.db.Exec(ctx, `
		INSERT INTO mastery_records (
			student_id, topic_id, workspace_id, subject_id, score, questions_attempted, questions_correct,
			total_quizzes_taken, total_time_spent, last_attempt_at, trend, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1, NOW(), NOW())
		ON CONFLICT (student_id, topic_id) DO NOTHING`,
		rec.StudentID, rec.TopicID, rec.WorkspaceID, rec.SubjectID, rec.Score, rec.QuestionsAttempted,
		rec.QuestionsCorrect, rec.TotalQuizzesTaken, rec.TotalTimeSpent, rec.LastAttemptAt, trend,
	)
	if err != nil {
		return false, huberrors.NewStoreWriteError("mastery create", err)
	}

	if tag.RowsAffected() == 0 {
		return false, nil
	}

	rec.Version = 1

	return true, nil
}

// UpdateIfVersion writes rec when the stored version still equals rec.Version and bumps it.
// Returns false when a concurrent writer got there first.
func (r *MasteryRepository) UpdateIfVersion(ctx context.Context, rec *models.MasteryRecord) (bool, error) {
	trend, err := encodeTrend(rec.Trend)
	if err != nil {
		return false, err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE mastery_records SET
			workspace_id = COALESCE(workspace_id, $3),
			subject_id = COALESCE(subject_id, $4),
			score = $5,
			questions_attempted = $6,
			questions_correct = $7,
			total_quizzes_taken = $8,
			total_time_spent = $9,
			last_attempt_at = $10,
			trend = $11,
			version = version + 1,
			updated_at = NOW()
		WHERE student_id = $1 AND topic_id = $2 AND version = $12`,
		rec.StudentID, rec.TopicID, rec.WorkspaceID, rec.SubjectID, rec.Score, rec.QuestionsAttempted,
		rec.QuestionsCorrect, rec.TotalQuizzesTaken, rec.TotalTimeSpent, rec.LastAttemptAt, trend, rec.Version,
	)
	if err != nil {
		return false, huberrors.NewStoreWriteError("mastery update", err)
	}

	if tag.RowsAffected() == 0 {
		return false, nil
	}

	rec.Version++

	return true, nil
}

func encodeTrend(trend []models.TrendPoint) ([]byte, error) {
	if trend == nil {
		trend = []models.TrendPoint{}
	}

	data, err := json.Marshal(trend)
	if err != nil {
		return nil, fmt.Errorf("encode mastery trend: %w", err)
	}

	return data, nil
}
