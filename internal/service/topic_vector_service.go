package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/learnhub/engine/internal/embeddings"
	"github.com/learnhub/engine/internal/huberrors"
	"github.com/learnhub/engine/internal/models"
)

// TopicVectorStore reads topics and writes their reference vectors.
type TopicVectorStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Topic, error)
	UpdateReferenceVector(ctx context.Context, topicID uuid.UUID, vec []float32) (uuid.UUID, error)
}

// TopicVectorService (re)generates topic reference vectors, the comparison targets of splash.
type TopicVectorService struct {
	embedder embeddings.Client
	store    TopicVectorStore
	splash   *SplashPropagator
}

// NewTopicVectorService creates the service. splash may be nil when no cache needs invalidating.
func NewTopicVectorService(embedder embeddings.Client, store TopicVectorStore, splash *SplashPropagator) *TopicVectorService {
	return &TopicVectorService{embedder: embedder, store: store, splash: splash}
}

// TopicVectorText is the text embedded for a topic: name, blank line, description.
func TopicVectorText(name, description string) string {
	return strings.TrimSpace(strings.TrimSpace(name) + "\n\n" + strings.TrimSpace(description))
}

// GenerateAndSaveTopicVector embeds the topic's name and description and stores the result
// as its reference vector.
func (s *TopicVectorService) GenerateAndSaveTopicVector(ctx context.Context, topicID uuid.UUID, name, description string) error {
	text := TopicVectorText(name, description)
	if text == "" {
		return huberrors.NewValidationError("name", "topic name and description are empty")
	}

	vec, err := s.embedder.Embed(ctx, text, embeddings.TaskSemanticSimilarity)
	if err != nil {
		return fmt.Errorf("embed topic %s: %w", topicID, err)
	}

	subjectID, err := s.store.UpdateReferenceVector(ctx, topicID, vec)
	if err != nil {
		return fmt.Errorf("save topic vector: %w", err)
	}

	if s.splash != nil {
		s.splash.Invalidate(ctx, subjectID)
	}

	slog.InfoContext(ctx, "topic vector: saved",
		"topic_id", topicID,
		"subject_id", subjectID,
	)

	return nil
}

// RegenerateTopicVector reloads the topic and regenerates its vector from the stored text.
func (s *TopicVectorService) RegenerateTopicVector(ctx context.Context, topicID uuid.UUID) error {
	topic, err := s.store.GetByID(ctx, topicID)
	if err != nil {
		return fmt.Errorf("load topic: %w", err)
	}

	return s.GenerateAndSaveTopicVector(ctx, topic.ID, topic.Name, topic.Description)
}
