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

// QuizzesRepository reads quiz snapshots and live questions and stores graded results.
type QuizzesRepository struct {
	db *pgxpool.Pool
}

// NewQuizzesRepository creates a new quizzes repository.
func NewQuizzesRepository(db *pgxpool.Pool) *QuizzesRepository {
	return &QuizzesRepository{db: db}
}

// GetQuiz returns the quiz with its frozen question snapshot.
func (r *QuizzesRepository) GetQuiz(ctx context.Context, id uuid.UUID) (*models.Quiz, error) {
	var (
		quiz      models.Quiz
		snapshot  []byte
		resultRaw []byte
	)

	err := r.db.QueryRow(ctx, `
		SELECT id, account_id, workspace_id, questions, result, submitted_at, created_at
		FROM quizzes WHERE id = $1`, id,
	).Scan(&quiz.ID, &quiz.AccountID, &quiz.WorkspaceID, &snapshot, &resultRaw, &quiz.SubmittedAt, &quiz.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.QuizNotFound(id.String())
		}

		return nil, fmt.Errorf("get quiz: %w", err)
	}

	if err := json.Unmarshal(snapshot, &quiz.Questions); err != nil {
		return nil, fmt.Errorf("decode quiz snapshot: %w", err)
	}

	if len(resultRaw) > 0 {
		quiz.Result = &models.QuizResult{}
		if err := json.Unmarshal(resultRaw, quiz.Result); err != nil {
			return nil, fmt.Errorf("decode quiz result: %w", err)
		}
	}

	return &quiz, nil
}

// GetQuestionsByIDs returns the live questions keyed by ID. Missing IDs are absent from the map.
func (r *QuizzesRepository) GetQuestionsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Question, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, text, answers, correct_answer, topic_id, subject_id
		FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]*models.Question, len(ids))

	for rows.Next() {
		var (
			q       models.Question
			answers []byte
		)

		if err := rows.Scan(&q.ID, &q.Text, &answers, &q.CorrectAnswer, &q.TopicID, &q.SubjectID); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}

		if err := json.Unmarshal(answers, &q.Answers); err != nil {
			return nil, fmt.Errorf("decode answers for question %s: %w", q.ID, err)
		}

		out[q.ID] = &q
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating questions: %w", err)
	}

	return out, nil
}

// SaveResult stores the graded result once. A quiz that already has a result is a conflict.
func (r *QuizzesRepository) SaveResult(ctx context.Context, result *models.QuizResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode quiz result: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE quizzes SET result = $2, submitted_at = $3
		WHERE id = $1 AND submitted_at IS NULL`,
		result.QuizID, data, result.GradedAt,
	)
	if err != nil {
		return huberrors.NewStoreWriteError("quiz result save", err)
	}

	if tag.RowsAffected() == 0 {
		return huberrors.NewConflictError("quiz already submitted: " + result.QuizID.String())
	}

	return nil
}
