package models

import (
	"time"

	"github.com/google/uuid"
)

// Question is the live, authoritative question row. CorrectAnswer may be corrected after a
// quiz snapshot was taken; grading always reads it from here.
type Question struct {
	ID            uuid.UUID  `json:"id"`
	Text          string     `json:"text"`
	Answers       []string   `json:"answers"`
	CorrectAnswer string     `json:"correct_answer"`
	TopicID       *uuid.UUID `json:"topic_id,omitempty"`
	SubjectID     *uuid.UUID `json:"subject_id,omitempty"`
}

// QuestionSnapshot is the frozen copy of a question stored on the quiz when it was generated.
type QuestionSnapshot struct {
	QuestionID uuid.UUID  `json:"question_id"`
	Text       string     `json:"text"`
	Answers    []string   `json:"answers"`
	TopicID    *uuid.UUID `json:"topic_id,omitempty"`
	SubjectID  *uuid.UUID `json:"subject_id,omitempty"`
}

// Quiz is owned by the quiz component; grading only reads it.
type Quiz struct {
	ID          uuid.UUID          `json:"id"`
	AccountID   uuid.UUID          `json:"account_id"`
	WorkspaceID uuid.UUID          `json:"workspace_id"`
	Questions   []QuestionSnapshot `json:"questions"`
	Result      *QuizResult        `json:"result,omitempty"`
	SubmittedAt *time.Time         `json:"submitted_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Submitted reports whether a result has already been stored.
func (q *Quiz) Submitted() bool {
	return q.SubmittedAt != nil
}

// SubmittedAnswer is a student's pick for one question; SelectedAnswer may be a letter ("A")
// or the literal answer text.
type SubmittedAnswer struct {
	QuestionID     uuid.UUID `json:"question_id"`
	SelectedAnswer string    `json:"selected_answer"`
}

// QuizAnalytics carries optional client timing, in seconds.
type QuizAnalytics struct {
	TimePerQuestion map[uuid.UUID]float64 `json:"time_per_question,omitempty"`
	TotalTime       *float64              `json:"total_time,omitempty"`
}

// QuizSubmission is the grading input.
type QuizSubmission struct {
	QuizID    uuid.UUID         `json:"quiz_id"`
	AccountID uuid.UUID         `json:"account_id"`
	Answers   []SubmittedAnswer `json:"answers"`
	Analytics *QuizAnalytics    `json:"analytics,omitempty"`
}

// QuestionResult is one graded row. UserAnswer is nil for unanswered questions.
type QuestionResult struct {
	QuestionID    uuid.UUID  `json:"question_id"`
	UserAnswer    *string    `json:"user_answer"`
	CorrectAnswer string     `json:"correct_answer"`
	IsCorrect     bool       `json:"is_correct"`
	TimeSpent     float64    `json:"time_spent"`
	TopicID       *uuid.UUID `json:"topic_id,omitempty"`
	SubjectID     *uuid.UUID `json:"subject_id,omitempty"`
}

// QuizResult is the graded outcome stored on the quiz.
type QuizResult struct {
	QuizID           uuid.UUID        `json:"quiz_id"`
	AccountID        uuid.UUID        `json:"account_id"`
	Score            float64          `json:"score"`
	CorrectCount     int              `json:"correct_count"`
	TotalQuestions   int              `json:"total_questions"`
	Details          []QuestionResult `json:"details"`
	TotalTimeSpent   float64          `json:"total_time_spent"`
	AverageTimeSpent float64          `json:"average_time_spent"`
	GradedAt         time.Time        `json:"graded_at"`
}

// TopicBuckets groups graded rows by their explicit topic tag. Untagged questions are left out.
func (r *QuizResult) TopicBuckets() map[uuid.UUID]GradedSignal {
	buckets := make(map[uuid.UUID]GradedSignal)

	for _, d := range r.Details {
		if d.TopicID == nil {
			continue
		}

		b := buckets[*d.TopicID]
		if b.SubjectID == nil && d.SubjectID != nil {
			subjectID := *d.SubjectID
			b.SubjectID = &subjectID
		}

		b.Total++
		if d.IsCorrect {
			b.Correct++
		}

		b.TimeSpent += d.TimeSpent
		buckets[*d.TopicID] = b
	}

	return buckets
}
