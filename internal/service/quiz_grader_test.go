package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/engine/internal/huberrors"
	"github.com/learnhub/engine/internal/models"
)

type quizFixture struct {
	store   *fakeQuizStore
	quiz    *models.Quiz
	capital uuid.UUID
	planet  uuid.UUID
	topic   uuid.UUID
	subject uuid.UUID
}

func newQuizFixture() *quizFixture {
	f := &quizFixture{
		store:   newFakeQuizStore(),
		capital: uuid.New(),
		planet:  uuid.New(),
		topic:   uuid.New(),
		subject: uuid.New(),
	}

	capitals := []string{"Paris", "London", "Rome", "Berlin"}
	planets := []string{"Venus", "Mars", "Jupiter"}

	f.store.questions[f.capital] = &models.Question{
		ID: f.capital, Text: "Capital of France?", Answers: capitals, CorrectAnswer: "Paris",
		TopicID: idPtr(f.topic), SubjectID: idPtr(f.subject),
	}
	f.store.questions[f.planet] = &models.Question{
		ID: f.planet, Text: "Red planet?", Answers: planets, CorrectAnswer: "Mars",
	}

	f.quiz = &models.Quiz{
		ID:          uuid.New(),
		AccountID:   uuid.New(),
		WorkspaceID: uuid.New(),
		Questions: []models.QuestionSnapshot{
			{QuestionID: f.capital, Text: "Capital of France?", Answers: capitals},
			{QuestionID: f.planet, Text: "Red planet?", Answers: planets},
		},
	}
	f.store.quizzes[f.quiz.ID] = f.quiz

	return f
}

func (f *quizFixture) submission(answers ...models.SubmittedAnswer) *models.QuizSubmission {
	return &models.QuizSubmission{QuizID: f.quiz.ID, AccountID: f.quiz.AccountID, Answers: answers}
}

func TestResolveAnswer(t *testing.T) {
	options := []string{"Paris", "London", "Rome", "Berlin"}

	tests := []struct {
		in, want string
	}{
		{in: "A", want: "Paris"},
		{in: "D", want: "Berlin"},
		{in: "E", want: "E"},
		{in: "Z", want: "Z"},
		{in: "a", want: "a"},
		{in: "AB", want: "AB"},
		{in: "Rome", want: "Rome"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveAnswer(tt.in, options))
		})
	}
}

func TestQuizGrader_LetterSelection(t *testing.T) {
	f := newQuizFixture()
	g := NewQuizGrader(f.store)

	result, err := g.Grade(context.Background(), f.submission(
		models.SubmittedAnswer{QuestionID: f.capital, SelectedAnswer: "A"},
		models.SubmittedAnswer{QuestionID: f.planet, SelectedAnswer: "Z"},
	))
	require.NoError(t, err)

	require.Len(t, result.Details, 2)

	capital := result.Details[0]
	assert.True(t, capital.IsCorrect)
	require.NotNil(t, capital.UserAnswer)
	assert.Equal(t, "Paris", *capital.UserAnswer)
	assert.Equal(t, "Paris", capital.CorrectAnswer)
	assert.Equal(t, f.topic, *capital.TopicID)
	assert.Equal(t, f.subject, *capital.SubjectID)

	planet := result.Details[1]
	assert.False(t, planet.IsCorrect)
	require.NotNil(t, planet.UserAnswer)
	assert.Equal(t, "Z", *planet.UserAnswer)

	assert.Equal(t, 1, result.CorrectCount)
	assert.Equal(t, 2, result.TotalQuestions)
	assert.InDelta(t, 50, result.Score, 1e-9)
}

func TestQuizGrader_LiveCorrectAnswerWins(t *testing.T) {
	f := newQuizFixture()
	f.store.questions[f.planet].CorrectAnswer = "Jupiter"

	result, err := NewQuizGrader(f.store).Grade(context.Background(), f.submission(
		models.SubmittedAnswer{QuestionID: f.capital, SelectedAnswer: "Paris"},
		models.SubmittedAnswer{QuestionID: f.planet, SelectedAnswer: "C"},
	))
	require.NoError(t, err)
	assert.Equal(t, 2, result.CorrectCount)
	assert.InDelta(t, 100, result.Score, 1e-9)
}

func TestQuizGrader_UnansweredAndTiming(t *testing.T) {
	f := newQuizFixture()

	sub := f.submission(models.SubmittedAnswer{QuestionID: f.capital, SelectedAnswer: "B"})
	sub.Analytics = &models.QuizAnalytics{
		TimePerQuestion: map[uuid.UUID]float64{f.capital: 12, f.planet: 4},
	}

	result, err := NewQuizGrader(f.store).Grade(context.Background(), sub)
	require.NoError(t, err)

	assert.Nil(t, result.Details[1].UserAnswer)
	assert.False(t, result.Details[1].IsCorrect)
	assert.Zero(t, result.CorrectCount)
	assert.Zero(t, result.Score)
	assert.InDelta(t, 16, result.TotalTimeSpent, 1e-9)
	assert.InDelta(t, 8, result.AverageTimeSpent, 1e-9)

	total := 30.0
	sub.Analytics.TotalTime = &total

	result, err = NewQuizGrader(f.store).Grade(context.Background(), sub)
	require.NoError(t, err)
	assert.InDelta(t, 30, result.TotalTimeSpent, 1e-9)
	assert.InDelta(t, 15, result.AverageTimeSpent, 1e-9)
}

func TestQuizGrader_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("missing quiz", func(t *testing.T) {
		f := newQuizFixture()

		_, err := NewQuizGrader(f.store).Grade(ctx, &models.QuizSubmission{QuizID: uuid.New()})
		require.ErrorIs(t, err, huberrors.ErrQuizNotFound)
	})

	t.Run("missing question", func(t *testing.T) {
		f := newQuizFixture()
		delete(f.store.questions, f.planet)

		_, err := NewQuizGrader(f.store).Grade(ctx, f.submission())
		require.ErrorIs(t, err, huberrors.ErrQuestionNotFound)
	})

	t.Run("empty quiz", func(t *testing.T) {
		f := newQuizFixture()
		f.quiz.Questions = nil

		_, err := NewQuizGrader(f.store).Grade(ctx, f.submission())
		require.ErrorIs(t, err, huberrors.ErrValidation)
	})

	t.Run("already submitted", func(t *testing.T) {
		f := newQuizFixture()
		now := testEpoch
		f.quiz.SubmittedAt = &now

		_, err := NewQuizGrader(f.store).Grade(ctx, f.submission())
		require.ErrorIs(t, err, huberrors.ErrConflict)
	})
}
