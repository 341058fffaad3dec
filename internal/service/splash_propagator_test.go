package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/engine/internal/models"
)

// unitAt returns a 2-d unit vector whose cosine similarity with (1, 0) is sim.
func unitAt(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

func TestSplashPropagator_ComputeSplash(t *testing.T) {
	ctx := context.Background()
	subject := uuid.New()

	high, mid, low, missing := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	source := &fakeTopicSource{refs: map[uuid.UUID][]models.TopicReferenceVector{
		subject: {
			{TopicID: low, Vector: unitAt(0.5)},
			{TopicID: mid, Vector: unitAt(0.7)},
			{TopicID: missing},
			{TopicID: high, Vector: unitAt(0.95)},
		},
	}}

	p := NewSplashPropagator(source, nil, nil)

	got, err := p.ComputeSplash(ctx, []float32{1, 0}, subject, 0.65)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, high, got[0].TopicID)
	assert.InDelta(t, 0.95, got[0].Similarity, 1e-6)
	assert.Equal(t, mid, got[1].TopicID)

	for _, r := range got {
		assert.GreaterOrEqual(t, r.Similarity, 0.65)
	}
}

func TestSplashPropagator_EmptySubject(t *testing.T) {
	p := NewSplashPropagator(&fakeTopicSource{}, nil, nil)

	got, err := p.ComputeSplash(context.Background(), []float32{1, 0}, uuid.New(), 0.65)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSplashPropagator_TiesOrderedByTopicID(t *testing.T) {
	subject := uuid.New()
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	source := &fakeTopicSource{refs: map[uuid.UUID][]models.TopicReferenceVector{
		subject: {{TopicID: b, Vector: []float32{1, 0}}, {TopicID: a, Vector: []float32{2, 0}}},
	}}

	got, err := NewSplashPropagator(source, nil, nil).ComputeSplash(context.Background(), []float32{1, 0}, subject, 0.65)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].TopicID)
	assert.Equal(t, b, got[1].TopicID)
}

func TestSplashPropagator_SourceError(t *testing.T) {
	p := NewSplashPropagator(&fakeTopicSource{err: errStore}, nil, nil)

	_, err := p.ComputeSplash(context.Background(), []float32{1, 0}, uuid.New(), 0.65)
	require.ErrorIs(t, err, errStore)
}

func TestSplashPropagator_CacheAndInvalidate(t *testing.T) {
	ctx := context.Background()
	subject := uuid.New()
	topic := uuid.New()

	source := &fakeTopicSource{refs: map[uuid.UUID][]models.TopicReferenceVector{
		subject: {{TopicID: topic, Vector: []float32{1, 0}}},
	}}

	topicCache, err := NewTopicVectorCache(8, 0)
	require.NoError(t, err)

	metrics := &recordingCacheMetrics{}
	p := NewSplashPropagator(source, topicCache, metrics)

	for range 3 {
		got, err := p.ComputeSplash(ctx, []float32{1, 0}, subject, 0.65)
		require.NoError(t, err)
		require.Len(t, got, 1)
	}

	assert.Equal(t, 1, source.loads)
	assert.Equal(t, 2, metrics.hits)
	assert.Equal(t, 1, metrics.misses)

	source.refs[subject] = []models.TopicReferenceVector{{TopicID: topic, Vector: []float32{0, 1}}}
	p.Invalidate(ctx, subject)

	got, err := p.ComputeSplash(ctx, []float32{1, 0}, subject, 0.65)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 2, source.loads)
	assert.Equal(t, 1, metrics.invalidations)
	assert.Equal(t, 2, metrics.loadedTopics)
}

func TestSplashPropagator_CountsTopicsMissingVectors(t *testing.T) {
	subject := uuid.New()
	source := &fakeTopicSource{refs: map[uuid.UUID][]models.TopicReferenceVector{
		subject: {{TopicID: uuid.New(), Vector: []float32{1, 0}}, {TopicID: uuid.New()}, {TopicID: uuid.New()}},
	}}

	topicCache, err := NewTopicVectorCache(8, 0)
	require.NoError(t, err)

	metrics := &recordingCacheMetrics{}
	p := NewSplashPropagator(source, topicCache, metrics)

	got, err := p.ComputeSplash(context.Background(), []float32{1, 0}, subject, 0.65)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, metrics.loadedTopics)
	assert.Equal(t, 2, metrics.missingVectors)
}

func TestSplashPropagator_CacheExpiryPicksUpRemoteRegeneration(t *testing.T) {
	ctx := context.Background()
	subject := uuid.New()
	topic := uuid.New()

	// Shared store; the regeneration below happens in another worker process, so this
	// propagator's cache is never invalidated.
	source := &fakeTopicSource{refs: map[uuid.UUID][]models.TopicReferenceVector{
		subject: {{TopicID: topic, Vector: []float32{0, 1}}},
	}}

	topicCache, err := NewTopicVectorCache(8, 30*time.Millisecond)
	require.NoError(t, err)

	p := NewSplashPropagator(source, topicCache, nil)

	got, err := p.ComputeSplash(ctx, []float32{1, 0}, subject, 0.65)
	require.NoError(t, err)
	assert.Empty(t, got)

	source.refs[subject] = []models.TopicReferenceVector{{TopicID: topic, Vector: []float32{1, 0}}}

	time.Sleep(60 * time.Millisecond)

	got, err = p.ComputeSplash(ctx, []float32{1, 0}, subject, 0.65)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, topic, got[0].TopicID)
	assert.Equal(t, 2, source.loads)
}
