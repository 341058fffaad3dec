package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/learnhub/engine/internal/huberrors"
	"github.com/learnhub/engine/internal/models"
	"github.com/learnhub/engine/internal/observability"
)

// KnowledgeVectorStore is the aggregate-vector slice of the knowledge store.
// Blend and add are single server-side expressions over the stored row.
type KnowledgeVectorStore interface {
	BlendStudentVector(ctx context.Context, studentID, workspaceID uuid.UUID, vec []float32, oldWeight, newWeight float64) error
	GetClassroomStudentCount(ctx context.Context, classroomID uuid.UUID) (int64, error)
	GetClassroomAggregate(ctx context.Context, classroomID uuid.UUID) (*models.ClassroomAggregate, error)
	AddToClassroomAggregate(ctx context.Context, classroomID uuid.UUID, delta []float32) (int64, error)
}

// DNASynthesizer maintains the student and classroom knowledge vectors.
type DNASynthesizer struct {
	store     KnowledgeVectorStore
	sampler   *AdaptiveSampler
	newWeight float64
	metrics   observability.PipelineMetrics
}

// NewDNASynthesizer creates a synthesizer. metrics may be nil.
func NewDNASynthesizer(
	store KnowledgeVectorStore, sampler *AdaptiveSampler, tuning Tuning, metrics observability.PipelineMetrics,
) *DNASynthesizer {
	tuning = tuning.WithDefaults()

	return &DNASynthesizer{
		store:     store,
		sampler:   sampler,
		newWeight: tuning.StudentDNANewWeight,
		metrics:   metrics,
	}
}

// SyncStudentDNA folds vec into the student's knowledge vector: the first vector is stored
// as-is, later ones as old*(1-w) + vec*w evaluated by the store against the current row.
func (d *DNASynthesizer) SyncStudentDNA(ctx context.Context, studentID, workspaceID uuid.UUID, vec []float32) error {
	if err := d.store.BlendStudentVector(ctx, studentID, workspaceID, vec, 1-d.newWeight, d.newWeight); err != nil {
		return fmt.Errorf("sync student dna: %w", err)
	}

	return nil
}

// AdaptiveClassroomUpdate adds delta to the classroom sum when the sampler accepts the write.
// It reports whether the write was applied.
func (d *DNASynthesizer) AdaptiveClassroomUpdate(ctx context.Context, classroomID uuid.UUID, delta []float32) (bool, error) {
	found := true

	count, err := d.store.GetClassroomStudentCount(ctx, classroomID)
	if err != nil {
		if !errors.Is(err, huberrors.ErrNotFound) {
			return false, fmt.Errorf("read classroom student count: %w", err)
		}

		found = false
	}

	p, apply := d.sampler.Sample(count, found)

	if d.metrics != nil {
		d.metrics.RecordSamplingDecision(ctx, apply)
	}

	if !apply {
		slog.DebugContext(ctx, "classroom dna: sampled out",
			"classroom_id", classroomID,
			"student_count", count,
			"probability", p,
		)

		return false, nil
	}

	newCount, err := d.store.AddToClassroomAggregate(ctx, classroomID, delta)
	if err != nil {
		return false, fmt.Errorf("classroom dna update: %w", err)
	}

	slog.DebugContext(ctx, "classroom dna: applied",
		"classroom_id", classroomID,
		"student_count", newCount,
		"probability", p,
	)

	return true, nil
}

// ClassroomCentroid returns sum/count for the classroom. ok is false when the classroom has
// no aggregate yet.
func (d *DNASynthesizer) ClassroomCentroid(ctx context.Context, classroomID uuid.UUID) ([]float32, bool, error) {
	agg, err := d.store.GetClassroomAggregate(ctx, classroomID)
	if err != nil {
		if errors.Is(err, huberrors.ErrNotFound) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("read classroom aggregate: %w", err)
	}

	centroid, ok := agg.Centroid()

	return centroid, ok, nil
}
