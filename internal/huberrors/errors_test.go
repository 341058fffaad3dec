package huberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundError_Is(t *testing.T) {
	t.Run("matches generic sentinel", func(t *testing.T) {
		err := fmt.Errorf("resolve: %w", TopicNotFound("t1"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("matches same resource sentinel", func(t *testing.T) {
		err := fmt.Errorf("grade: %w", QuestionNotFound("q1"))
		assert.ErrorIs(t, err, ErrQuestionNotFound)
		assert.NotErrorIs(t, err, ErrQuizNotFound)
	})

	t.Run("message falls back to resource", func(t *testing.T) {
		assert.Equal(t, "subject not found", (&NotFoundError{Resource: ResourceSubject}).Error())
		assert.Equal(t, "resource not found", (&NotFoundError{}).Error())
	})
}

func TestEmbeddingUnavailableError(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := fmt.Errorf("pipeline: %w", NewEmbeddingUnavailableError("google", cause))

	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrStoreWrite)
	assert.Equal(t, "pipeline: embedding unavailable (google): deadline exceeded", err.Error())
}

func TestStoreWriteError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewStoreWriteError("student dna upsert", cause)

	assert.ErrorIs(t, err, ErrStoreWrite)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "store write failed: student dna upsert: connection reset", err.Error())
}

func TestValidationAndConflict(t *testing.T) {
	assert.ErrorIs(t, NewValidationError("answers", ""), ErrValidation)
	assert.Equal(t, "validation failed for field: answers", NewValidationError("answers", "").Error())
	assert.ErrorIs(t, NewConflictError("quiz already submitted"), ErrConflict)
	assert.Equal(t, "conflict", (&ConflictError{}).Error())
}
