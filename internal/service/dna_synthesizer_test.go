package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/engine/pkg/embeddings"
)

func newTestDNA(store *memVectorStore, draw float64, metrics *recordingPipelineMetrics) *DNASynthesizer {
	sampler := NewAdaptiveSampler(DefaultTuning()).WithDraw(func() float64 { return draw })

	if metrics == nil {
		return NewDNASynthesizer(store, sampler, DefaultTuning(), nil)
	}

	return NewDNASynthesizer(store, sampler, DefaultTuning(), metrics)
}

func TestDNASynthesizer_SyncStudentDNA(t *testing.T) {
	ctx := context.Background()
	store := newMemVectorStore()
	dna := newTestDNA(store, 0, nil)
	student, workspace := uuid.New(), uuid.New()

	v1 := []float32{1, 0, 0}
	v2 := []float32{0, 1, 0}
	v3 := []float32{0, 0, 1}

	require.NoError(t, dna.SyncStudentDNA(ctx, student, workspace, v1))
	assert.Equal(t, v1, store.student(student, workspace), "first layer is stored unblended")

	require.NoError(t, dna.SyncStudentDNA(ctx, student, workspace, v2))
	require.NoError(t, dna.SyncStudentDNA(ctx, student, workspace, v3))

	want := embeddings.Blend(embeddings.Blend(v1, v2, 0.9, 0.1), v3, 0.9, 0.1)
	assert.InDeltaSlice(t, want, store.student(student, workspace), 1e-6)

	store.blendErr = errStore
	require.ErrorIs(t, dna.SyncStudentDNA(ctx, student, workspace, v1), errStore)
}

func TestDNASynthesizer_AdaptiveClassroomUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("cold start applies and seeds the aggregate", func(t *testing.T) {
		store := newMemVectorStore()
		metrics := newRecordingPipelineMetrics()
		dna := newTestDNA(store, 0.999, metrics)
		classroom := uuid.New()

		applied, err := dna.AdaptiveClassroomUpdate(ctx, classroom, []float32{2, 4})
		require.NoError(t, err)
		assert.True(t, applied)

		applied, err = dna.AdaptiveClassroomUpdate(ctx, classroom, []float32{4, 0})
		require.NoError(t, err)
		assert.True(t, applied)

		centroid, ok, err := dna.ClassroomCentroid(ctx, classroom)
		require.NoError(t, err)
		require.True(t, ok)
		assert.InDeltaSlice(t, []float32{3, 2}, centroid, 1e-6)
		assert.Equal(t, []bool{true, true}, metrics.sampling)
	})

	t.Run("large classroom is sampled out", func(t *testing.T) {
		store := newMemVectorStore()
		classroom := uuid.New()
		store.classrooms[classroom] = newAggregate(classroom, 1000)

		dna := newTestDNA(store, 0.5, nil)

		applied, err := dna.AdaptiveClassroomUpdate(ctx, classroom, []float32{1, 1})
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, 0, store.adds)
		assert.Equal(t, int64(1000), store.classrooms[classroom].StudentCount)
	})

	t.Run("count read failure is returned", func(t *testing.T) {
		store := newMemVectorStore()
		store.countErr = errStore

		_, err := newTestDNA(store, 0, nil).AdaptiveClassroomUpdate(ctx, uuid.New(), []float32{1})
		require.ErrorIs(t, err, errStore)
	})

	t.Run("write failure is returned", func(t *testing.T) {
		store := newMemVectorStore()
		store.addErr = errStore

		applied, err := newTestDNA(store, 0, nil).AdaptiveClassroomUpdate(ctx, uuid.New(), []float32{1})
		require.ErrorIs(t, err, errStore)
		assert.False(t, applied)
	})
}

func TestDNASynthesizer_ClassroomCentroidAbsent(t *testing.T) {
	centroid, ok, err := newTestDNA(newMemVectorStore(), 0, nil).ClassroomCentroid(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, centroid)
}
