package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/learnhub/engine/internal/models"
)

// GradedMasterySubmitter schedules the direct mastery update for a graded quiz.
type GradedMasterySubmitter interface {
	SubmitGradedMastery(ctx context.Context, quizID, studentID, workspaceID uuid.UUID) error
}

// QuizSubmissionService grades a submission, stores the result and schedules the mastery update.
type QuizSubmissionService struct {
	grader    *QuizGrader
	store     QuizStore
	submitter GradedMasterySubmitter
}

// NewQuizSubmissionService creates the service. submitter may be nil to skip mastery updates.
func NewQuizSubmissionService(grader *QuizGrader, store QuizStore, submitter GradedMasterySubmitter) *QuizSubmissionService {
	return &QuizSubmissionService{grader: grader, store: store, submitter: submitter}
}

// Submit grades and persists the quiz result. Failing to schedule the mastery update is
// logged and does not fail the submission.
func (s *QuizSubmissionService) Submit(ctx context.Context, sub *models.QuizSubmission) (*models.QuizResult, error) {
	quiz, result, err := s.grader.grade(ctx, sub)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveResult(ctx, result); err != nil {
		return nil, fmt.Errorf("save quiz result: %w", err)
	}

	slog.InfoContext(ctx, "quiz: graded",
		"quiz_id", quiz.ID,
		"account_id", sub.AccountID,
		"score", result.Score,
		"correct", result.CorrectCount,
		"total", result.TotalQuestions,
	)

	if s.submitter == nil {
		return result, nil
	}

	if err := s.submitter.SubmitGradedMastery(ctx, quiz.ID, sub.AccountID, quiz.WorkspaceID); err != nil {
		slog.WarnContext(ctx, "quiz: mastery update not scheduled",
			"quiz_id", quiz.ID,
			"account_id", sub.AccountID,
			"error", err,
		)
	}

	return result, nil
}

// GradedMasteryService applies a stored quiz result to the student's mastery records.
type GradedMasteryService struct {
	quizzes QuizStore
	mastery *MasterySynthesizer
}

// NewGradedMasteryService creates the service used by the graded mastery worker.
func NewGradedMasteryService(quizzes QuizStore, mastery *MasterySynthesizer) *GradedMasteryService {
	return &GradedMasteryService{quizzes: quizzes, mastery: mastery}
}

// ApplyQuizResult loads the stored result of quizID and updates the mastery of each tagged topic.
func (s *GradedMasteryService) ApplyQuizResult(ctx context.Context, quizID, studentID, workspaceID uuid.UUID) (int, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return 0, fmt.Errorf("load graded quiz: %w", err)
	}

	if quiz.Result == nil {
		slog.WarnContext(ctx, "quiz: no stored result, skipping mastery update", "quiz_id", quizID)

		return 0, nil
	}

	n, err := s.mastery.UpdateStudentMastery(ctx, studentID, workspaceID, quiz.Result)
	if err != nil {
		return n, fmt.Errorf("graded mastery update: %w", err)
	}

	return n, nil
}
