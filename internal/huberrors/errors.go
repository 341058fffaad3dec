// Package huberrors provides sentinel and custom error types for the knowledge engine.
package huberrors

// ErrNotFound represents a "not found" error.
// Use when a requested resource doesn't exist.
var ErrNotFound = &NotFoundError{}

// NotFoundError is a sentinel error for resources that are not found.
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a new NotFoundError with a custom message.
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Resource != "" {
		return e.Resource + " not found"
	}

	return "resource not found"
}

// Is matches any *NotFoundError, or a *NotFoundError for the same resource when the target names one.
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	if !ok {
		return false
	}

	return t.Resource == "" || t.Resource == e.Resource
}

// Resource names used with NotFoundError.
const (
	ResourceTopic    = "topic"
	ResourceSubject  = "subject"
	ResourceQuiz     = "quiz"
	ResourceQuestion = "question"
	ResourceMastery  = "mastery record"
)

// Typed sentinels for errors.Is checks on a specific resource.
var (
	ErrTopicNotFound    = &NotFoundError{Resource: ResourceTopic}
	ErrSubjectNotFound  = &NotFoundError{Resource: ResourceSubject}
	ErrQuizNotFound     = &NotFoundError{Resource: ResourceQuiz}
	ErrQuestionNotFound = &NotFoundError{Resource: ResourceQuestion}
)

// TopicNotFound returns a NotFoundError for the given topic id.
func TopicNotFound(id string) *NotFoundError {
	return NewNotFoundError(ResourceTopic, "topic not found: "+id)
}

// SubjectNotFound returns a NotFoundError for the given subject id.
func SubjectNotFound(id string) *NotFoundError {
	return NewNotFoundError(ResourceSubject, "subject not found: "+id)
}

// QuizNotFound returns a NotFoundError for the given quiz id.
func QuizNotFound(id string) *NotFoundError {
	return NewNotFoundError(ResourceQuiz, "quiz not found: "+id)
}

// QuestionNotFound returns a NotFoundError for the given question id.
func QuestionNotFound(id string) *NotFoundError {
	return NewNotFoundError(ResourceQuestion, "question not found: "+id)
}

// ErrValidation represents a validation error.
// Use when input fails validation.
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for validation failures.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new ValidationError with a custom message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Field != "" {
		return "validation failed for field: " + e.Field
	}

	return "validation error"
}

// Is implements the error interface for error comparison.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)

	return ok
}

// ErrConflict is the sentinel for conflict errors (e.g. a quiz that was already submitted).
var ErrConflict = &ConflictError{}

// ConflictError is a sentinel error for resource conflicts.
type ConflictError struct {
	Message string
}

// NewConflictError creates a ConflictError with a custom message.
func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "conflict"
}

// Is implements the error interface for error comparison.
func (e *ConflictError) Is(target error) bool {
	_, ok := target.(*ConflictError)

	return ok
}

// ErrEmbeddingUnavailable is the sentinel for embedding provider failures and timeouts.
// Semantic steps that depend on the vector must be skipped, never fed a zero vector.
var ErrEmbeddingUnavailable = &EmbeddingUnavailableError{}

// EmbeddingUnavailableError wraps the provider error that made an embedding unavailable.
type EmbeddingUnavailableError struct {
	Provider string
	Err      error
}

// NewEmbeddingUnavailableError wraps err as an EmbeddingUnavailableError.
func NewEmbeddingUnavailableError(provider string, err error) *EmbeddingUnavailableError {
	return &EmbeddingUnavailableError{Provider: provider, Err: err}
}

// Error implements the error interface.
func (e *EmbeddingUnavailableError) Error() string {
	msg := "embedding unavailable"
	if e.Provider != "" {
		msg += " (" + e.Provider + ")"
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying provider error.
func (e *EmbeddingUnavailableError) Unwrap() error {
	return e.Err
}

// Is implements the error interface for error comparison.
func (e *EmbeddingUnavailableError) Is(target error) bool {
	_, ok := target.(*EmbeddingUnavailableError)

	return ok
}

// ErrStoreWrite is the sentinel for failed aggregate or log writes.
var ErrStoreWrite = &StoreWriteError{}

// StoreWriteError wraps a failed write against the knowledge store.
type StoreWriteError struct {
	Op  string
	Err error
}

// NewStoreWriteError wraps err as a StoreWriteError for the named operation.
func NewStoreWriteError(op string, err error) *StoreWriteError {
	return &StoreWriteError{Op: op, Err: err}
}

// Error implements the error interface.
func (e *StoreWriteError) Error() string {
	if e.Err == nil {
		return "store write failed: " + e.Op
	}

	return "store write failed: " + e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying store error.
func (e *StoreWriteError) Unwrap() error {
	return e.Err
}

// Is implements the error interface for error comparison.
func (e *StoreWriteError) Is(target error) bool {
	_, ok := target.(*StoreWriteError)

	return ok
}
