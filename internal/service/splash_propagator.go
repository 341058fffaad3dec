package service

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/learnhub/engine/internal/models"
	"github.com/learnhub/engine/internal/observability"
	"github.com/learnhub/engine/pkg/cache"
	"github.com/learnhub/engine/pkg/embeddings"
)

// TopicVectorSource lists the reference vectors of a subject's topics.
type TopicVectorSource interface {
	ListReferenceVectorsBySubject(ctx context.Context, subjectID uuid.UUID) ([]models.TopicReferenceVector, error)
}

// TopicVectorCache caches reference vectors per subject.
type TopicVectorCache = cache.LoaderCache[uuid.UUID, []models.TopicReferenceVector]

// NewTopicVectorCache creates a per-subject reference vector cache. Entries live for ttl so
// vectors regenerated by another worker process are picked up; 0 keeps them until evicted.
func NewTopicVectorCache(size int, ttl time.Duration) (*TopicVectorCache, error) {
	c, err := cache.NewLoaderCache[uuid.UUID, []models.TopicReferenceVector](size, ttl, uuid.UUID.String)
	if err != nil {
		return nil, fmt.Errorf("topic vector cache: %w", err)
	}

	return c, nil
}

// SplashPropagator finds the topics of a subject that an interaction semantically touches.
type SplashPropagator struct {
	source  TopicVectorSource
	cache   *TopicVectorCache
	metrics observability.TopicVectorCacheMetrics
}

// NewSplashPropagator creates a propagator. cache and metrics may be nil.
func NewSplashPropagator(
	source TopicVectorSource, topicCache *TopicVectorCache, metrics observability.TopicVectorCacheMetrics,
) *SplashPropagator {
	return &SplashPropagator{source: source, cache: topicCache, metrics: metrics}
}

// ComputeSplash returns the subject's topics whose reference vector has cosine similarity
// >= threshold with contentVec, most similar first. Ties are ordered by topic ID.
// Topics without a reference vector are skipped. No match is an empty result, not an error.
func (p *SplashPropagator) ComputeSplash(
	ctx context.Context, contentVec []float32, subjectID uuid.UUID, threshold float64,
) ([]models.SplashResult, error) {
	refs, err := p.referenceVectors(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	results := make([]models.SplashResult, 0, len(refs))

	for _, ref := range refs {
		if len(ref.Vector) == 0 {
			continue
		}

		sim := embeddings.CosineSimilarity(contentVec, ref.Vector)
		if sim >= threshold {
			results = append(results, models.SplashResult{TopicID: ref.TopicID, Similarity: sim})
		}
	}

	slices.SortFunc(results, func(a, b models.SplashResult) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}

		return bytes.Compare(a.TopicID[:], b.TopicID[:])
	})

	return results, nil
}

// Invalidate drops the cached vectors of a subject, e.g. after a topic vector was regenerated.
func (p *SplashPropagator) Invalidate(ctx context.Context, subjectID uuid.UUID) {
	if p.cache == nil {
		return
	}

	p.cache.Invalidate(subjectID)

	if p.metrics != nil {
		p.metrics.RecordInvalidation(ctx)
	}
}

func (p *SplashPropagator) referenceVectors(ctx context.Context, subjectID uuid.UUID) ([]models.TopicReferenceVector, error) {
	if p.cache == nil {
		refs, err := p.source.ListReferenceVectorsBySubject(ctx, subjectID)
		if err != nil {
			return nil, fmt.Errorf("load topic vectors: %w", err)
		}

		return refs, nil
	}

	refs, hit, err := p.cache.GetWithStats(ctx, subjectID, p.source.ListReferenceVectorsBySubject)
	if err != nil {
		return nil, fmt.Errorf("load topic vectors: %w", err)
	}

	if p.metrics != nil {
		p.metrics.RecordLookup(ctx, hit)

		if !hit {
			missing := 0

			for _, ref := range refs {
				if len(ref.Vector) == 0 {
					missing++
				}
			}

			p.metrics.RecordSubjectLoad(ctx, len(refs), missing)
		}
	}

	return refs, nil
}
