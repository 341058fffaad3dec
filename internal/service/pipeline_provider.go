package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/learnhub/engine/internal/models"
	"github.com/learnhub/engine/internal/observability"
)

// PipelineProvider schedules knowledge engine work as River jobs after the triggering record
// is stored. Callers never wait on the work itself.
type PipelineProvider struct {
	inserter    JobInserter
	maxAttempts int
	metrics     observability.PipelineMetrics
}

// NewPipelineProvider creates a provider. metrics may be nil.
func NewPipelineProvider(inserter JobInserter, maxAttempts int, metrics observability.PipelineMetrics) *PipelineProvider {
	return &PipelineProvider{inserter: inserter, maxAttempts: maxAttempts, metrics: metrics}
}

// SubmitInteraction validates event and enqueues its knowledge pipeline. An event without an ID
// gets a UUIDv7; a zero OccurredAt becomes the submission time.
func (p *PipelineProvider) SubmitInteraction(ctx context.Context, event models.InteractionEvent) error {
	if err := event.Validate(); err != nil {
		slog.WarnContext(ctx, "knowledge pipeline: event rejected",
			"student_id", event.StudentID,
			"error", err,
		)

		return fmt.Errorf("submit interaction: %w", err)
	}

	if event.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate event id: %w", err)
		}

		event.ID = id
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	return p.insert(ctx, KnowledgePipelineArgs{Event: event}, KnowledgeQueueName,
		"event_id", event.ID,
		"student_id", event.StudentID,
		"source_type", event.SourceType.String(),
	)
}

// SubmitTopicVector enqueues regeneration of a topic's reference vector.
func (p *PipelineProvider) SubmitTopicVector(ctx context.Context, topicID uuid.UUID) error {
	return p.insert(ctx, TopicVectorArgs{TopicID: topicID}, TopicVectorsQueueName, "topic_id", topicID)
}

// SubmitGradedMastery enqueues the direct mastery update for a graded quiz.
func (p *PipelineProvider) SubmitGradedMastery(ctx context.Context, quizID, studentID, workspaceID uuid.UUID) error {
	args := GradedMasteryArgs{QuizID: quizID, StudentID: studentID, WorkspaceID: workspaceID}

	return p.insert(ctx, args, KnowledgeQueueName, "quiz_id", quizID, "student_id", studentID)
}

func (p *PipelineProvider) insert(ctx context.Context, args river.JobArgs, queue string, logAttrs ...any) error {
	opts := &river.InsertOpts{Queue: queue, MaxAttempts: p.maxAttempts}
	if _, ok := args.(GradedMasteryArgs); ok {
		opts.UniqueOpts = river.UniqueOpts{ByArgs: true}
	}

	res, err := p.inserter.Insert(ctx, args, opts)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordEnqueueError(ctx, args.Kind())
		}

		slog.ErrorContext(ctx, "knowledge pipeline: enqueue failed",
			append([]any{"kind", args.Kind(), "error", err}, logAttrs...)...,
		)

		return fmt.Errorf("enqueue %s: %w", args.Kind(), err)
	}

	if res != nil && res.UniqueSkippedAsDuplicate {
		slog.DebugContext(ctx, "knowledge pipeline: duplicate job skipped",
			append([]any{"kind", args.Kind()}, logAttrs...)...,
		)

		return nil
	}

	if p.metrics != nil {
		p.metrics.RecordJobsEnqueued(ctx, args.Kind(), 1)
	}

	slog.DebugContext(ctx, "knowledge pipeline: job enqueued",
		append([]any{"kind", args.Kind()}, logAttrs...)...,
	)

	return nil
}

var _ GradedMasterySubmitter = (*PipelineProvider)(nil)
