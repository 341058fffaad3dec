package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/engine/internal/datatypes"
	"github.com/learnhub/engine/internal/huberrors"
	"github.com/learnhub/engine/internal/models"
)

func validEvent() models.InteractionEvent {
	return models.InteractionEvent{
		StudentID:   uuid.New(),
		WorkspaceID: uuid.New(),
		SourceType:  datatypes.SourceTermDeepDive,
		Text:        "mitochondria",
	}
}

func TestPipelineProvider_SubmitInteraction(t *testing.T) {
	ctx := context.Background()

	t.Run("enqueues on the knowledge queue with an id", func(t *testing.T) {
		inserter := &fakeInserter{}
		metrics := newRecordingPipelineMetrics()
		p := NewPipelineProvider(inserter, 7, metrics)

		require.NoError(t, p.SubmitInteraction(ctx, validEvent()))

		require.Len(t, inserter.args, 1)
		args, ok := inserter.args[0].(KnowledgePipelineArgs)
		require.True(t, ok)
		assert.NotEqual(t, uuid.Nil, args.Event.ID)
		assert.Equal(t, uuid.Version(7), args.Event.ID.Version())
		assert.False(t, args.Event.OccurredAt.IsZero())

		assert.Equal(t, KnowledgeQueueName, inserter.opts[0].Queue)
		assert.Equal(t, 7, inserter.opts[0].MaxAttempts)
		assert.False(t, inserter.opts[0].UniqueOpts.ByArgs)
		assert.Equal(t, int64(1), metrics.enqueued[KnowledgePipelineKind])
	})

	t.Run("keeps a caller supplied id", func(t *testing.T) {
		inserter := &fakeInserter{}
		event := validEvent()
		event.ID = uuid.New()

		require.NoError(t, NewPipelineProvider(inserter, 3, nil).SubmitInteraction(ctx, event))
		assert.Equal(t, event.ID, inserter.args[0].(KnowledgePipelineArgs).Event.ID)
	})

	t.Run("rejects an invalid event without enqueueing", func(t *testing.T) {
		inserter := &fakeInserter{}
		event := validEvent()
		event.MasterySignal = floatPtr(1.5)

		err := NewPipelineProvider(inserter, 3, nil).SubmitInteraction(ctx, event)
		require.ErrorIs(t, err, huberrors.ErrValidation)
		assert.Empty(t, inserter.args)
	})

	t.Run("enqueue failure is returned and counted", func(t *testing.T) {
		inserter := &fakeInserter{err: errors.New("connection refused")}
		metrics := newRecordingPipelineMetrics()

		err := NewPipelineProvider(inserter, 3, metrics).SubmitInteraction(ctx, validEvent())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "enqueue knowledge_pipeline")
		assert.Equal(t, 1, metrics.errors[KnowledgePipelineKind])
		assert.Zero(t, metrics.enqueued[KnowledgePipelineKind])
	})
}

func TestPipelineProvider_SubmitTopicVector(t *testing.T) {
	inserter := &fakeInserter{}
	topicID := uuid.New()

	require.NoError(t, NewPipelineProvider(inserter, 3, nil).SubmitTopicVector(context.Background(), topicID))

	require.Len(t, inserter.args, 1)
	assert.Equal(t, TopicVectorArgs{TopicID: topicID}, inserter.args[0])
	assert.Equal(t, TopicVectorsQueueName, inserter.opts[0].Queue)
}

func TestPipelineProvider_SubmitGradedMastery(t *testing.T) {
	ctx := context.Background()
	quizID, studentID, workspaceID := uuid.New(), uuid.New(), uuid.New()

	t.Run("unique by args", func(t *testing.T) {
		inserter := &fakeInserter{}
		metrics := newRecordingPipelineMetrics()

		require.NoError(t, NewPipelineProvider(inserter, 3, metrics).SubmitGradedMastery(ctx, quizID, studentID, workspaceID))

		assert.Equal(t, GradedMasteryArgs{QuizID: quizID, StudentID: studentID, WorkspaceID: workspaceID}, inserter.args[0])
		assert.Equal(t, KnowledgeQueueName, inserter.opts[0].Queue)
		assert.True(t, inserter.opts[0].UniqueOpts.ByArgs)
		assert.Equal(t, int64(1), metrics.enqueued[GradedMasteryKind])
	})

	t.Run("duplicate is not an error and not counted", func(t *testing.T) {
		inserter := &fakeInserter{dupes: true}
		metrics := newRecordingPipelineMetrics()

		require.NoError(t, NewPipelineProvider(inserter, 3, metrics).SubmitGradedMastery(ctx, quizID, studentID, workspaceID))
		assert.Zero(t, metrics.enqueued[GradedMasteryKind])
	})
}
