// Package jobs holds River plumbing shared by the worker and the backfill command.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// TopicLister lists topics that still lack a reference vector.
type TopicLister interface {
	ListIDsMissingReferenceVector(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// TopicVectorSubmitter enqueues a topic vector job.
type TopicVectorSubmitter interface {
	SubmitTopicVector(ctx context.Context, topicID uuid.UUID) error
}

// BackfillStats holds statistics from a backfill run.
type BackfillStats struct {
	TopicsFound    int
	TopicsEnqueued int
	Errors         int
}

// BackfillTopicVectors enqueues a regeneration job for up to limit topics without a reference
// vector. Enqueue failures are counted and logged; the run continues.
func BackfillTopicVectors(ctx context.Context, lister TopicLister, submitter TopicVectorSubmitter, limit int) (*BackfillStats, error) {
	ids, err := lister.ListIDsMissingReferenceVector(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list topics missing vectors: %w", err)
	}

	stats := &BackfillStats{TopicsFound: len(ids)}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("backfill interrupted: %w", err)
		}

		if err := submitter.SubmitTopicVector(ctx, id); err != nil {
			slog.ErrorContext(ctx, "backfill: enqueue topic vector failed", "topic_id", id, "error", err)

			stats.Errors++

			continue
		}

		stats.TopicsEnqueued++
	}

	return stats, nil
}
