// Package engine is the entry point for applications that feed the knowledge engine:
// the learning interaction flow hands off interactions, the quiz flow submits answers for
// grading, and topic editors request reference vector regeneration.
//
// Work is scheduled as River jobs on the engine's queues and processed by cmd/worker.
// Interaction handoff is fire-and-forget: callers get an error only when the job could not
// be stored.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"

	"github.com/learnhub/engine/internal/datatypes"
	"github.com/learnhub/engine/internal/huberrors"
	"github.com/learnhub/engine/internal/models"
	"github.com/learnhub/engine/internal/repository"
	"github.com/learnhub/engine/internal/service"
)

// Request and result types shared with the engine's workers.
type (
	InteractionEvent = models.InteractionEvent
	QuizSubmission   = models.QuizSubmission
	SubmittedAnswer  = models.SubmittedAnswer
	QuizAnalytics    = models.QuizAnalytics
	QuizResult       = models.QuizResult
	QuestionResult   = models.QuestionResult
	SourceType       = datatypes.SourceType
)

// Interaction sources.
const (
	SourceQuizAnalysis     = datatypes.SourceQuizAnalysis
	SourceTermDeepDive     = datatypes.SourceTermDeepDive
	SourceHomeworkReport   = datatypes.SourceHomeworkReport
	SourceTopicExploration = datatypes.SourceTopicExploration
)

// Sentinels for errors.Is on Client results.
var (
	ErrValidation = huberrors.ErrValidation
	ErrConflict   = huberrors.ErrConflict
	ErrNotFound   = huberrors.ErrNotFound
)

const (
	defaultMaxAttempts    = 3
	defaultEnqueueRetries = 3
	defaultMaxBackoff     = 2 * time.Second
)

// JobInserter stores River jobs. *river.Client satisfies it, including an insert-only client.
type JobInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

type options struct {
	maxAttempts    int
	enqueueRetries int
	maxBackoff     time.Duration
}

// Option configures a Client.
type Option func(*options)

// WithMaxAttempts sets River's max attempts for every job the client enqueues.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithEnqueueRetry sets how often a failed insert is retried and the backoff cap between tries.
// Zero retries disables retrying.
func WithEnqueueRetry(retries int, maxBackoff time.Duration) Option {
	return func(o *options) {
		o.enqueueRetries = max(retries, 0)

		if maxBackoff > 0 {
			o.maxBackoff = maxBackoff
		}
	}
}

// Client submits work to the knowledge engine.
type Client struct {
	provider *service.PipelineProvider
	quizzes  *service.QuizSubmissionService
}

// Open creates a Client over db with an insert-only River client. The database must carry the
// engine schema (database.Migrate) and River's tables.
func Open(db *pgxpool.Pool, opts ...Option) (*Client, error) {
	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{})
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}

	return New(repository.NewQuizzesRepository(db), riverClient, opts...), nil
}

// New creates a Client from a quiz store and a job inserter.
func New(quizzes service.QuizStore, inserter JobInserter, opts ...Option) *Client {
	o := options{
		maxAttempts:    defaultMaxAttempts,
		enqueueRetries: defaultEnqueueRetries,
		maxBackoff:     defaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var jobs service.JobInserter = inserter
	if o.enqueueRetries > 0 {
		jobs = service.NewRetryingJobInserter(inserter, service.RetryingJobInserterConfig{
			MaxRetries: o.enqueueRetries,
			MaxBackoff: o.maxBackoff,
		})
	}

	provider := service.NewPipelineProvider(jobs, o.maxAttempts, nil)

	return &Client{
		provider: provider,
		quizzes:  service.NewQuizSubmissionService(service.NewQuizGrader(quizzes), quizzes, provider),
	}
}

// SubmitInteraction schedules the knowledge pipeline for event. Events without an ID get a
// UUIDv7. Invalid events are rejected with ErrValidation.
func (c *Client) SubmitInteraction(ctx context.Context, event InteractionEvent) error {
	return c.provider.SubmitInteraction(ctx, event) //nolint:wrapcheck // already wrapped
}

// SubmitQuiz grades sub against the live answers, stores the result and schedules the
// student's mastery update. A quiz that was already submitted returns ErrConflict.
func (c *Client) SubmitQuiz(ctx context.Context, sub *QuizSubmission) (*QuizResult, error) {
	if sub == nil {
		return nil, huberrors.NewValidationError("submission", "quiz submission is required")
	}

	return c.quizzes.Submit(ctx, sub) //nolint:wrapcheck // already wrapped
}

// SubmitTopicVector schedules regeneration of a topic's reference vector, e.g. after its
// name or description changed.
func (c *Client) SubmitTopicVector(ctx context.Context, topicID uuid.UUID) error {
	return c.provider.SubmitTopicVector(ctx, topicID) //nolint:wrapcheck // already wrapped
}
