package models

import (
	"time"

	"github.com/google/uuid"
)

// Mastery score bounds and trend window.
const (
	InitialMasteryScore = 50.0
	MinMasteryScore     = 0.0
	MaxMasteryScore     = 100.0
	MaxTrendPoints      = 10
)

// TrendPoint is one sample of a mastery score over time.
type TrendPoint struct {
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// MasteryRecord is the per-(student, topic) mastery state. Both update paths
// (semantic splash and graded quiz) go through ApplySplashSignal / ApplyGradedSignal
// so clamping and the trend window are enforced in one place.
type MasteryRecord struct {
	StudentID          uuid.UUID    `json:"student_id"`
	TopicID            uuid.UUID    `json:"topic_id"`
	WorkspaceID        *uuid.UUID   `json:"workspace_id,omitempty"`
	SubjectID          *uuid.UUID   `json:"subject_id,omitempty"`
	Score              float64      `json:"score"`
	QuestionsAttempted int          `json:"questions_attempted"`
	QuestionsCorrect   int          `json:"questions_correct"`
	TotalQuizzesTaken  int          `json:"total_quizzes_taken"`
	TotalTimeSpent     float64      `json:"total_time_spent"`
	LastAttemptAt      *time.Time   `json:"last_attempt_at,omitempty"`
	Trend              []TrendPoint `json:"trend"`
	Version            int64        `json:"version"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// NewMasteryRecord returns an unsaved record seeded at InitialMasteryScore with an empty trend.
func NewMasteryRecord(studentID, topicID uuid.UUID) *MasteryRecord {
	return &MasteryRecord{
		StudentID: studentID,
		TopicID:   topicID,
		Score:     InitialMasteryScore,
		Trend:     []TrendPoint{},
	}
}

// GradedSignal is the explicit-topic evidence from one graded quiz.
type GradedSignal struct {
	SubjectID *uuid.UUID
	Correct   int
	Total     int
	TimeSpent float64
}

// CurrentScore returns correct/total*100, or 0 for an empty bucket.
func (g GradedSignal) CurrentScore() float64 {
	if g.Total <= 0 {
		return 0
	}

	return float64(g.Correct) / float64(g.Total) * 100
}

// ApplySplashSignal adds a similarity-weighted delta to the score.
func (m *MasteryRecord) ApplySplashSignal(delta float64, at time.Time) {
	m.setScore(m.Score+delta, at)
}

// ApplyGradedSignal blends the bucket score into the stored score:
// new = old*(1-weight) + current*weight, and bumps the quiz counters.
// Empty buckets are ignored.
func (m *MasteryRecord) ApplyGradedSignal(signal GradedSignal, weight float64, at time.Time) {
	if signal.Total <= 0 {
		return
	}

	m.setScore(m.Score*(1-weight)+signal.CurrentScore()*weight, at)

	m.TotalQuizzesTaken++
	m.QuestionsAttempted += signal.Total
	m.QuestionsCorrect += signal.Correct
	m.TotalTimeSpent += signal.TimeSpent

	if m.SubjectID == nil && signal.SubjectID != nil {
		subjectID := *signal.SubjectID
		m.SubjectID = &subjectID
	}
}

func (m *MasteryRecord) setScore(score float64, at time.Time) {
	m.Score = ClampScore(score)
	m.LastAttemptAt = &at
	m.Trend = pushTrend(m.Trend, TrendPoint{Score: m.Score, Timestamp: at})
}

// ClampScore bounds score to [MinMasteryScore, MaxMasteryScore].
func ClampScore(score float64) float64 {
	return min(MaxMasteryScore, max(MinMasteryScore, score))
}

// pushTrend appends p as the newest sample and drops the oldest samples beyond
// MaxTrendPoints. A timestamp earlier than the last sample (clock skew between
// workers) is raised to it, so the last point always carries the current score.
func pushTrend(trend []TrendPoint, p TrendPoint) []TrendPoint {
	if n := len(trend); n > 0 && p.Timestamp.Before(trend[n-1].Timestamp) {
		p.Timestamp = trend[n-1].Timestamp
	}

	out := make([]TrendPoint, 0, len(trend)+1)
	out = append(out, trend...)
	out = append(out, p)

	if len(out) > MaxTrendPoints {
		out = out[len(out)-MaxTrendPoints:]
	}

	return out
}
