package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/learnhub/engine/internal/huberrors"
	"github.com/learnhub/engine/internal/models"
	"github.com/learnhub/engine/internal/observability"
)

// ErrMasteryContention is returned when a mastery record kept changing under every retry.
var ErrMasteryContention = errors.New("mastery record update contention")

const (
	masteryPathSplash = "splash"
	masteryPathGraded = "graded"
)

// MasteryStore persists mastery records with optimistic concurrency on their version.
type MasteryStore interface {
	Get(ctx context.Context, studentID, topicID uuid.UUID) (*models.MasteryRecord, error)
	Create(ctx context.Context, rec *models.MasteryRecord) (bool, error)
	UpdateIfVersion(ctx context.Context, rec *models.MasteryRecord) (bool, error)
}

// MasterySynthesizer applies splash and graded signals to mastery records. Both paths go
// through the same record type and the same compare-and-swap loop.
type MasterySynthesizer struct {
	store   MasteryStore
	tuning  Tuning
	metrics observability.PipelineMetrics
	now     func() time.Time
}

// NewMasterySynthesizer creates a synthesizer. metrics may be nil.
func NewMasterySynthesizer(store MasteryStore, tuning Tuning, metrics observability.PipelineMetrics) *MasterySynthesizer {
	return &MasterySynthesizer{
		store:   store,
		tuning:  tuning.WithDefaults(),
		metrics: metrics,
		now:     time.Now,
	}
}

// SplashDelta returns +gain*similarity for a positive interaction (signal > 0.5),
// otherwise -penalty*similarity.
func (m *MasterySynthesizer) SplashDelta(masterySignal, similarity float64) float64 {
	if masterySignal > positiveSignalCutoff {
		return m.tuning.SplashGain * similarity
	}

	return -m.tuning.SplashPenalty * similarity
}

// BatchUpdateMastery applies a similarity-weighted delta to every splashed topic.
// A failing topic is logged and the rest of the batch still runs; the returned error
// joins all per-topic failures.
func (m *MasterySynthesizer) BatchUpdateMastery(
	ctx context.Context,
	studentID, workspaceID uuid.UUID,
	splash []models.SplashResult,
	masterySignal float64,
	subjectID *uuid.UUID,
) (int, error) {
	var (
		updated int
		errs    []error
	)

	for _, hit := range splash {
		delta := m.SplashDelta(masterySignal, hit.Similarity)
		at := m.now().UTC()

		_, err := m.upsert(ctx, studentID, hit.TopicID, workspaceID, subjectID, func(rec *models.MasteryRecord) {
			rec.ApplySplashSignal(delta, at)
		})
		m.record(ctx, masteryPathSplash, err)

		if err != nil {
			slog.WarnContext(ctx, "mastery: splash update failed",
				"student_id", studentID,
				"topic_id", hit.TopicID,
				"error", err,
			)

			errs = append(errs, err)

			continue
		}

		updated++
	}

	return updated, errors.Join(errs...)
}

// UpdateStudentMastery blends each explicitly tagged topic bucket of a graded quiz into the
// student's mastery record: new = old*(1-w) + correct/total*100*w. An absent record starts at 50.
func (m *MasterySynthesizer) UpdateStudentMastery(
	ctx context.Context, studentID, workspaceID uuid.UUID, result *models.QuizResult,
) (int, error) {
	buckets := result.TopicBuckets()

	topicIDs := make([]uuid.UUID, 0, len(buckets))
	for id := range buckets {
		topicIDs = append(topicIDs, id)
	}

	slices.SortFunc(topicIDs, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })

	var (
		updated int
		errs    []error
	)

	for _, topicID := range topicIDs {
		bucket := buckets[topicID]
		at := m.now().UTC()

		_, err := m.upsert(ctx, studentID, topicID, workspaceID, bucket.SubjectID, func(rec *models.MasteryRecord) {
			rec.ApplyGradedSignal(bucket, m.tuning.GradedMasteryWeight, at)
		})
		m.record(ctx, masteryPathGraded, err)

		if err != nil {
			slog.WarnContext(ctx, "mastery: graded update failed",
				"student_id", studentID,
				"topic_id", topicID,
				"quiz_id", result.QuizID,
				"error", err,
			)

			errs = append(errs, err)

			continue
		}

		updated++
	}

	return updated, errors.Join(errs...)
}

// upsert loads the record (or seeds a new one), applies mutate and writes it back,
// retrying from a fresh read whenever another writer won the race.
func (m *MasterySynthesizer) upsert(
	ctx context.Context,
	studentID, topicID, workspaceID uuid.UUID,
	subjectID *uuid.UUID,
	mutate func(*models.MasteryRecord),
) (*models.MasteryRecord, error) {
	for attempt := 1; attempt <= m.tuning.MasteryMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("mastery upsert: %w", err)
		}

		rec, err := m.store.Get(ctx, studentID, topicID)

		var written bool

		switch {
		case errors.Is(err, huberrors.ErrNotFound):
			rec = models.NewMasteryRecord(studentID, topicID)
			rec.WorkspaceID = &workspaceID
			rec.SubjectID = copyID(subjectID)
			mutate(rec)

			written, err = m.store.Create(ctx, rec)
		case err != nil:
			return nil, fmt.Errorf("load mastery record: %w", err)
		default:
			if rec.WorkspaceID == nil {
				rec.WorkspaceID = &workspaceID
			}

			if rec.SubjectID == nil {
				rec.SubjectID = copyID(subjectID)
			}

			mutate(rec)

			written, err = m.store.UpdateIfVersion(ctx, rec)
		}

		if err != nil {
			return nil, fmt.Errorf("write mastery record: %w", err)
		}

		if written {
			return rec, nil
		}

		slog.DebugContext(ctx, "mastery: concurrent write, retrying",
			"student_id", studentID,
			"topic_id", topicID,
			"attempt", attempt,
		)
	}

	return nil, fmt.Errorf("%w: student %s topic %s", ErrMasteryContention, studentID, topicID)
}

func (m *MasterySynthesizer) record(ctx context.Context, path string, err error) {
	if m.metrics == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failed"
	}

	m.metrics.RecordMasteryUpdate(ctx, path, status)
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}

	cp := *id

	return &cp
}
