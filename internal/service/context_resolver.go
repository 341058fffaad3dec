package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/learnhub/engine/internal/huberrors"
	"github.com/learnhub/engine/internal/models"
)

// HierarchyStore resolves a topic or subject to its place in the syllabus.
type HierarchyStore interface {
	ResolveHierarchy(ctx context.Context, topicID uuid.UUID) (*models.TopicHierarchy, error)
	GetSubjectClassroom(ctx context.Context, subjectID uuid.UUID) (*uuid.UUID, error)
}

// ContextResolver fills in the subject and classroom of an interaction.
type ContextResolver struct {
	store HierarchyStore
}

// NewContextResolver creates a resolver.
func NewContextResolver(store HierarchyStore) *ContextResolver {
	return &ContextResolver{store: store}
}

// ResolveContext returns the event's topic context with missing subject and classroom filled
// in from the topic (one JOIN), or from the subject when no topic is given. IDs set on the
// event are kept. An unknown topic or subject is dropped from the context rather than
// returned as an error, which leaves the semantic steps without a subject.
func (r *ContextResolver) ResolveContext(ctx context.Context, event *models.InteractionEvent) (models.TopicContext, error) {
	tc := models.TopicContext{
		TopicID:     copyID(event.TopicID),
		SubjectID:   copyID(event.SubjectID),
		ClassroomID: copyID(event.ClassroomID),
	}

	if tc.SubjectID != nil && tc.ClassroomID != nil {
		return tc, nil
	}

	if tc.TopicID != nil {
		h, err := r.store.ResolveHierarchy(ctx, *tc.TopicID)
		if err != nil {
			if errors.Is(err, huberrors.ErrNotFound) {
				tc.TopicID = nil

				return tc, nil
			}

			return tc, fmt.Errorf("resolve topic hierarchy: %w", err)
		}

		if tc.SubjectID == nil {
			tc.SubjectID = &h.SubjectID
		}

		if *tc.SubjectID == h.SubjectID {
			if tc.ClassroomID == nil {
				tc.ClassroomID = copyID(h.ClassroomID)
			}

			return tc, nil
		}
	}

	if tc.SubjectID == nil || tc.ClassroomID != nil {
		return tc, nil
	}

	classroomID, err := r.store.GetSubjectClassroom(ctx, *tc.SubjectID)
	if err != nil {
		if errors.Is(err, huberrors.ErrNotFound) {
			tc.SubjectID = nil

			return tc, nil
		}

		return tc, fmt.Errorf("resolve subject classroom: %w", err)
	}

	tc.ClassroomID = classroomID

	return tc, nil
}
