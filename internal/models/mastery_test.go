package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMasteryRecord_ApplySplashSignal(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("new record seeds from 50", func(t *testing.T) {
		rec := NewMasteryRecord(uuid.New(), uuid.New())
		rec.ApplySplashSignal(5*0.9, now)

		assert.InDelta(t, 54.5, rec.Score, 1e-9)
		require.Len(t, rec.Trend, 1)
		assert.InDelta(t, 54.5, rec.Trend[0].Score, 1e-9)
		require.NotNil(t, rec.LastAttemptAt)
		assert.Equal(t, now, *rec.LastAttemptAt)
	})

	t.Run("clamps at both ends", func(t *testing.T) {
		rec := &MasteryRecord{Score: 98}
		rec.ApplySplashSignal(5, now)
		assert.InDelta(t, 100.0, rec.Score, 1e-9)

		rec = &MasteryRecord{Score: 1}
		rec.ApplySplashSignal(-3, now)
		assert.InDelta(t, 0.0, rec.Score, 1e-9)
	})
}

func TestMasteryRecord_ApplyGradedSignal(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	subjectID := uuid.New()

	t.Run("ema from 40 with perfect bucket", func(t *testing.T) {
		rec := &MasteryRecord{Score: 40}
		rec.ApplyGradedSignal(GradedSignal{SubjectID: &subjectID, Correct: 4, Total: 4, TimeSpent: 30}, 0.3, now)

		assert.InDelta(t, 58.0, rec.Score, 1e-9)
		assert.Equal(t, 1, rec.TotalQuizzesTaken)
		assert.Equal(t, 4, rec.QuestionsAttempted)
		assert.Equal(t, 4, rec.QuestionsCorrect)
		assert.InDelta(t, 30.0, rec.TotalTimeSpent, 1e-9)
		require.NotNil(t, rec.SubjectID)
		assert.Equal(t, subjectID, *rec.SubjectID)
		assert.Len(t, rec.Trend, 1)
	})

	t.Run("absent record blends from 50", func(t *testing.T) {
		rec := NewMasteryRecord(uuid.New(), uuid.New())
		rec.ApplyGradedSignal(GradedSignal{Correct: 0, Total: 2}, 0.3, now)

		assert.InDelta(t, 35.0, rec.Score, 1e-9)
		assert.Equal(t, 0, rec.QuestionsCorrect)
	})

	t.Run("empty bucket is ignored", func(t *testing.T) {
		rec := &MasteryRecord{Score: 40}
		rec.ApplyGradedSignal(GradedSignal{}, 0.3, now)

		assert.InDelta(t, 40.0, rec.Score, 1e-9)
		assert.Empty(t, rec.Trend)
		assert.Zero(t, rec.TotalQuizzesTaken)
	})
}

func TestMasteryRecord_Invariants(t *testing.T) {
	rec := NewMasteryRecord(uuid.New(), uuid.New())
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	deltas := []float64{5, 5, -3, 4.5, -2.7, 5, 5, 5, 5, 5, 5, 5, -3, -3, -3, -3, 5, -3}
	for i, d := range deltas {
		at := start.Add(time.Duration(i) * time.Minute)
		if i%3 == 0 {
			rec.ApplyGradedSignal(GradedSignal{Correct: i % 2, Total: 1}, 0.3, at)
		} else {
			rec.ApplySplashSignal(d*10, at)
		}

		assert.GreaterOrEqual(t, rec.Score, MinMasteryScore)
		assert.LessOrEqual(t, rec.Score, MaxMasteryScore)
		assert.LessOrEqual(t, len(rec.Trend), MaxTrendPoints)
	}

	require.Len(t, rec.Trend, MaxTrendPoints)

	for i := 1; i < len(rec.Trend); i++ {
		assert.False(t, rec.Trend[i].Timestamp.Before(rec.Trend[i-1].Timestamp))
	}

	last := start.Add(time.Duration(len(deltas)-1) * time.Minute)
	assert.Equal(t, last, rec.Trend[MaxTrendPoints-1].Timestamp)
	assert.Equal(t, rec.Score, rec.Trend[MaxTrendPoints-1].Score)
}

func TestPushTrend_LaggingClockStaysNewest(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	trend := []TrendPoint{
		{Score: 50, Timestamp: base},
		{Score: 60, Timestamp: base.Add(2 * time.Minute)},
	}

	got := pushTrend(trend, TrendPoint{Score: 55, Timestamp: base.Add(time.Minute)})

	require.Len(t, got, 3)
	assert.InDelta(t, 55.0, got[2].Score, 1e-9)
	assert.Equal(t, base.Add(2*time.Minute), got[2].Timestamp)
	assert.Len(t, trend, 2)
}

func TestMasteryRecord_FullWindowWithLaggingClock(t *testing.T) {
	rec := NewMasteryRecord(uuid.New(), uuid.New())
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := range MaxTrendPoints {
		rec.ApplySplashSignal(1, start.Add(time.Duration(i)*time.Minute))
	}

	require.Len(t, rec.Trend, MaxTrendPoints)

	// A worker whose clock is an hour behind writes the next sample.
	rec.ApplySplashSignal(-20, start.Add(-time.Hour))

	require.Len(t, rec.Trend, MaxTrendPoints)
	newest := rec.Trend[MaxTrendPoints-1]
	assert.InDelta(t, rec.Score, newest.Score, 1e-9)
	assert.Equal(t, start.Add(time.Duration(MaxTrendPoints-1)*time.Minute), newest.Timestamp)
	assert.InDelta(t, 52.0, rec.Trend[0].Score, 1e-9)
}

func TestQuizResult_TopicBuckets(t *testing.T) {
	topicA, topicB, subject := uuid.New(), uuid.New(), uuid.New()

	result := &QuizResult{Details: []QuestionResult{
		{TopicID: &topicA, SubjectID: &subject, IsCorrect: true, TimeSpent: 10},
		{TopicID: &topicA, SubjectID: &subject, IsCorrect: false, TimeSpent: 20},
		{TopicID: &topicB, IsCorrect: true, TimeSpent: 5},
		{IsCorrect: true},
	}}

	buckets := result.TopicBuckets()
	require.Len(t, buckets, 2)

	a := buckets[topicA]
	assert.Equal(t, 1, a.Correct)
	assert.Equal(t, 2, a.Total)
	assert.InDelta(t, 30.0, a.TimeSpent, 1e-9)
	assert.InDelta(t, 50.0, a.CurrentScore(), 1e-9)
	require.NotNil(t, a.SubjectID)
	assert.Equal(t, subject, *a.SubjectID)

	b := buckets[topicB]
	assert.Nil(t, b.SubjectID)
	assert.InDelta(t, 100.0, b.CurrentScore(), 1e-9)
}
