package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/learnhub/engine/internal/huberrors"
	"github.com/learnhub/engine/internal/models"
)

// QuizStore reads quizzes and live questions and stores graded results.
type QuizStore interface {
	GetQuiz(ctx context.Context, id uuid.UUID) (*models.Quiz, error)
	GetQuestionsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Question, error)
	SaveResult(ctx context.Context, result *models.QuizResult) error
}

// QuizGrader grades a submission against the quiz's frozen question list and the live
// correct answers, so corrections made after the quiz was generated still apply.
type QuizGrader struct {
	store QuizStore
	now   func() time.Time
}

// NewQuizGrader creates a grader.
func NewQuizGrader(store QuizStore) *QuizGrader {
	return &QuizGrader{store: store, now: time.Now}
}

// Grade returns the graded result for sub. Grading failures are returned to the caller:
// unknown quiz or question, an empty quiz, or a quiz that was already submitted.
func (g *QuizGrader) Grade(ctx context.Context, sub *models.QuizSubmission) (*models.QuizResult, error) {
	_, result, err := g.grade(ctx, sub)

	return result, err
}

func (g *QuizGrader) grade(ctx context.Context, sub *models.QuizSubmission) (*models.Quiz, *models.QuizResult, error) {
	quiz, err := g.store.GetQuiz(ctx, sub.QuizID)
	if err != nil {
		return nil, nil, fmt.Errorf("grade quiz: %w", err)
	}

	if quiz.Submitted() {
		return nil, nil, huberrors.NewConflictError("quiz already submitted: " + quiz.ID.String())
	}

	if len(quiz.Questions) == 0 {
		return nil, nil, huberrors.NewValidationError("questions", "quiz has no questions")
	}

	ids := make([]uuid.UUID, len(quiz.Questions))
	for i, q := range quiz.Questions {
		ids[i] = q.QuestionID
	}

	live, err := g.store.GetQuestionsByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load quiz questions: %w", err)
	}

	selected := make(map[uuid.UUID]string, len(sub.Answers))
	for _, a := range sub.Answers {
		selected[a.QuestionID] = a.SelectedAnswer
	}

	result := &models.QuizResult{
		QuizID:         quiz.ID,
		AccountID:      sub.AccountID,
		TotalQuestions: len(quiz.Questions),
		Details:        make([]models.QuestionResult, 0, len(quiz.Questions)),
		GradedAt:       g.now().UTC(),
	}

	var summedTime float64

	for _, snap := range quiz.Questions {
		question, ok := live[snap.QuestionID]
		if !ok {
			return nil, nil, huberrors.QuestionNotFound(snap.QuestionID.String())
		}

		detail := models.QuestionResult{
			QuestionID:    snap.QuestionID,
			CorrectAnswer: question.CorrectAnswer,
			TimeSpent:     questionTime(sub.Analytics, snap.QuestionID),
			TopicID:       firstID(question.TopicID, snap.TopicID),
			SubjectID:     firstID(question.SubjectID, snap.SubjectID),
		}

		if raw, answered := selected[snap.QuestionID]; answered {
			options := snap.Answers
			if len(options) == 0 {
				options = question.Answers
			}

			answer := ResolveAnswer(raw, options)
			detail.UserAnswer = &answer
			detail.IsCorrect = answer == question.CorrectAnswer
		}

		if detail.IsCorrect {
			result.CorrectCount++
		}

		summedTime += detail.TimeSpent
		result.Details = append(result.Details, detail)
	}

	result.Score = float64(result.CorrectCount) / float64(result.TotalQuestions) * 100

	result.TotalTimeSpent = summedTime
	if sub.Analytics != nil && sub.Analytics.TotalTime != nil {
		result.TotalTimeSpent = *sub.Analytics.TotalTime
	}

	result.AverageTimeSpent = result.TotalTimeSpent / float64(result.TotalQuestions)

	return quiz, result, nil
}

// ResolveAnswer maps a single letter "A".."Z" to options[index]. Anything else, and a
// letter past the end of options, is returned unchanged.
func ResolveAnswer(selected string, options []string) string {
	if len(selected) != 1 || selected[0] < 'A' || selected[0] > 'Z' {
		return selected
	}

	idx := int(selected[0] - 'A')
	if idx >= len(options) {
		return selected
	}

	return options[idx]
}

func questionTime(analytics *models.QuizAnalytics, id uuid.UUID) float64 {
	if analytics == nil {
		return 0
	}

	return analytics.TimePerQuestion[id]
}

func firstID(ids ...*uuid.UUID) *uuid.UUID {
	for _, id := range ids {
		if id != nil {
			return copyID(id)
		}
	}

	return nil
}
