package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/learnhub/engine/internal/embeddings"
	"github.com/learnhub/engine/internal/huberrors"
	"github.com/learnhub/engine/internal/models"
	"github.com/learnhub/engine/internal/observability"
)

// InteractionStore writes the student interaction log and the classroom running averages.
type InteractionStore interface {
	AppendStudentEntry(ctx context.Context, entry *models.InteractionEntry) error
	MergeClassroomSample(ctx context.Context, sample *models.ClassroomInteractionSample) (*models.ClassroomInteractionAggregate, error)
}

// KnowledgePipelineDeps holds the collaborators of a KnowledgePipeline.
type KnowledgePipelineDeps struct {
	Resolver     *ContextResolver
	Embedder     embeddings.Client
	Interactions InteractionStore
	Splash       *SplashPropagator
	Mastery      *MasterySynthesizer
	DNA          *DNASynthesizer
	Tuning       Tuning
	Metrics      observability.PipelineMetrics // may be nil
	Tracer       trace.Tracer                  // defaults to the global tracer
}

// KnowledgePipeline runs the full knowledge update for one interaction.
type KnowledgePipeline struct {
	deps KnowledgePipelineDeps
}

// NewKnowledgePipeline creates a pipeline.
func NewKnowledgePipeline(deps KnowledgePipelineDeps) *KnowledgePipeline {
	deps.Tuning = deps.Tuning.WithDefaults()
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer(observability.ScopeName)
	}

	return &KnowledgePipeline{deps: deps}
}

// Run embeds the event text once and feeds the vector to every step: student entry, splash
// and mastery (when the subject is known), student DNA, and the classroom running average and
// sampled classroom DNA (when the classroom is known).
//
// Only an invalid event or an unavailable embedding is returned as an error; nothing has been
// written in either case. Later step failures are logged and recorded in the report.
func (p *KnowledgePipeline) Run(ctx context.Context, event *models.InteractionEvent) (*models.PipelineReport, error) {
	start := time.Now()

	ctx, span := p.deps.Tracer.Start(ctx, "knowledge_pipeline.run", trace.WithAttributes(
		attribute.String("event.id", event.ID.String()),
		attribute.String("event.source_type", event.SourceType.String()),
	))
	defer span.End()

	report := models.NewPipelineReport(event.ID)

	if err := event.Validate(); err != nil {
		p.finish(ctx, span, start, "invalid", err)

		return report, fmt.Errorf("knowledge pipeline: %w", err)
	}

	p.step(ctx, report, models.StepResolveContext, func(ctx context.Context) (models.StepOutcome, error) {
		tc, err := p.deps.Resolver.ResolveContext(ctx, event)
		report.Context = tc

		if err != nil {
			report.Context = models.TopicContext{
				TopicID:     copyID(event.TopicID),
				SubjectID:   copyID(event.SubjectID),
				ClassroomID: copyID(event.ClassroomID),
			}

			return models.OutcomeFailed, err
		}

		return models.OutcomeApplied, nil
	})

	var (
		vec      []float32
		embedErr error
	)

	p.step(ctx, report, models.StepEmbed, func(ctx context.Context) (models.StepOutcome, error) {
		vec, embedErr = p.deps.Embedder.Embed(ctx, event.Text, embeddings.TaskSemanticSimilarity)
		if embedErr == nil && len(vec) == 0 {
			embedErr = errors.New("empty vector")
		}

		if embedErr != nil {
			if !errors.Is(embedErr, huberrors.ErrEmbeddingUnavailable) {
				embedErr = huberrors.NewEmbeddingUnavailableError("", embedErr)
			}

			return models.OutcomeFailed, embedErr
		}

		return models.OutcomeApplied, nil
	})

	if embedErr != nil {
		p.finish(ctx, span, start, "embedding_unavailable", embedErr)

		return report, fmt.Errorf("knowledge pipeline: %w", embedErr)
	}

	tc := report.Context

	p.step(ctx, report, models.StepStudentEntry, func(ctx context.Context) (models.StepOutcome, error) {
		return applied(p.deps.Interactions.AppendStudentEntry(ctx, &models.InteractionEntry{
			StudentID:     event.StudentID,
			WorkspaceID:   event.WorkspaceID,
			TopicID:       tc.TopicID,
			SubjectID:     tc.SubjectID,
			SourceType:    event.SourceType,
			Vector:        vec,
			MasterySignal: event.MasterySignal,
			Metadata:      event.Metadata,
		}))
	})

	p.runSplash(ctx, report, event, vec)

	p.step(ctx, report, models.StepStudentDNA, func(ctx context.Context) (models.StepOutcome, error) {
		return applied(p.deps.DNA.SyncStudentDNA(ctx, event.StudentID, event.WorkspaceID, vec))
	})

	p.runClassroom(ctx, report, event, vec)

	status := "completed"
	if len(report.Failed()) > 0 {
		status = "partial"
	}

	p.finish(ctx, span, start, status, nil)

	slog.InfoContext(ctx, "knowledge pipeline: done",
		"event_id", event.ID,
		"student_id", event.StudentID,
		"status", status,
		"splash_topics", len(report.Splash),
		"mastery_updated", report.MasteryUpdated,
	)

	return report, nil
}

func (p *KnowledgePipeline) runSplash(
	ctx context.Context, report *models.PipelineReport, event *models.InteractionEvent, vec []float32,
) {
	subjectID := report.Context.SubjectID
	if subjectID == nil {
		report.Record(models.StepSplash, models.OutcomeSkipped)
		report.Record(models.StepMastery, models.OutcomeSkipped)
		p.recordOutcome(ctx, models.StepSplash, models.OutcomeSkipped)
		p.recordOutcome(ctx, models.StepMastery, models.OutcomeSkipped)

		return
	}

	p.step(ctx, report, models.StepSplash, func(ctx context.Context) (models.StepOutcome, error) {
		hits, err := p.deps.Splash.ComputeSplash(ctx, vec, *subjectID, p.deps.Tuning.SplashThreshold)
		if err != nil {
			return models.OutcomeFailed, err
		}

		report.Splash = hits

		if p.deps.Metrics != nil {
			p.deps.Metrics.RecordSplashTopics(ctx, len(hits))
		}

		return models.OutcomeApplied, nil
	})

	p.step(ctx, report, models.StepMastery, func(ctx context.Context) (models.StepOutcome, error) {
		if event.MasterySignal == nil || len(report.Splash) == 0 {
			return models.OutcomeSkipped, nil
		}

		n, err := p.deps.Mastery.BatchUpdateMastery(
			ctx, event.StudentID, event.WorkspaceID, report.Splash, *event.MasterySignal, subjectID,
		)
		report.MasteryUpdated = n

		return applied(err)
	})
}

func (p *KnowledgePipeline) runClassroom(
	ctx context.Context, report *models.PipelineReport, event *models.InteractionEvent, vec []float32,
) {
	classroomID := report.Context.ClassroomID
	if classroomID == nil {
		report.Record(models.StepClassroomInteraction, models.OutcomeSkipped)
		report.Record(models.StepClassroomDNA, models.OutcomeSkipped)
		p.recordOutcome(ctx, models.StepClassroomInteraction, models.OutcomeSkipped)
		p.recordOutcome(ctx, models.StepClassroomDNA, models.OutcomeSkipped)

		return
	}

	p.step(ctx, report, models.StepClassroomInteraction, func(ctx context.Context) (models.StepOutcome, error) {
		_, err := p.deps.Interactions.MergeClassroomSample(ctx, &models.ClassroomInteractionSample{
			ClassroomID:   *classroomID,
			TopicID:       report.Context.TopicID,
			SourceType:    event.SourceType,
			Vector:        vec,
			MasterySignal: event.MasterySignal,
		})

		return applied(err)
	})

	p.step(ctx, report, models.StepClassroomDNA, func(ctx context.Context) (models.StepOutcome, error) {
		ok, err := p.deps.DNA.AdaptiveClassroomUpdate(ctx, *classroomID, vec)
		if err != nil {
			return models.OutcomeFailed, err
		}

		if !ok {
			return models.OutcomeSampledOut, nil
		}

		return models.OutcomeApplied, nil
	})
}

// step runs fn in its own span and records its outcome. Errors are logged, never returned.
func (p *KnowledgePipeline) step(
	ctx context.Context,
	report *models.PipelineReport,
	name models.PipelineStep,
	fn func(context.Context) (models.StepOutcome, error),
) {
	ctx, span := p.deps.Tracer.Start(ctx, "knowledge_pipeline."+string(name))
	defer span.End()

	outcome, err := fn(ctx)
	if err != nil {
		outcome = models.OutcomeFailed

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		slog.WarnContext(ctx, "knowledge pipeline: step failed",
			"step", name,
			"event_id", report.EventID,
			"error", err,
		)
	}

	span.SetAttributes(attribute.String("step.outcome", string(outcome)))
	report.Record(name, outcome)
	p.recordOutcome(ctx, name, outcome)
}

func (p *KnowledgePipeline) recordOutcome(ctx context.Context, step models.PipelineStep, outcome models.StepOutcome) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.RecordStepOutcome(ctx, string(step), string(outcome))
	}
}

func (p *KnowledgePipeline) finish(ctx context.Context, span trace.Span, start time.Time, status string, err error) {
	span.SetAttributes(attribute.String("pipeline.status", status))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if p.deps.Metrics != nil {
		p.deps.Metrics.RecordPipelineDuration(ctx, time.Since(start), status)
	}
}

func applied(err error) (models.StepOutcome, error) {
	if err != nil {
		return models.OutcomeFailed, err
	}

	return models.OutcomeApplied, nil
}
