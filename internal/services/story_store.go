package services

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/repository"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// StoryStore owns story creation, status transitions and counter bumps.
type StoryStore struct {
	repo repository.StoryRepository
}

func NewStoryStore(repo repository.StoryRepository) *StoryStore {
	return &StoryStore{repo: repo}
}

// Create inserts a pending story with zeroed counters.
func (s *StoryStore) Create(ctx context.Context, content *SanitizedContent, tier string, flags []string) (*models.Story, error) {
	if flags == nil {
		flags = []string{}
	}
	rawFlags, err := json.Marshal(flags)
	if err != nil {
		return nil, err
	}

	story := &models.Story{
		ID:            uuid.New(),
		Title:         content.Title,
		Body:          content.Body,
		Category:      content.Category,
		SubmitterTier: tier,
		Status:        models.StatusPending,
		ContentFlags:  datatypes.JSON(rawFlags),
	}
	if err := s.repo.Create(ctx, story); err != nil {
		return nil, persistence("create story", err)
	}
	return story, nil
}

func (s *StoryStore) Get(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	story, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, storeError("get story", err)
	}
	return story, nil
}

// GetPublic hides anything that is not approved.
func (s *StoryStore) GetPublic(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	story, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if story.Status != models.StatusApproved {
		return nil, ErrStoryNotFound
	}
	return story, nil
}

// Transition moves a pending story to approved or declined. On a story that
// is already terminal it changes nothing and returns the current record with
// changed=false. Featuring is only honored on approval.
func (s *StoryStore) Transition(ctx context.Context, id uuid.UUID, status string, featured bool) (*models.Story, bool, error) {
	if status != models.StatusApproved && status != models.StatusDeclined {
		return nil, false, ErrInvalidDecision
	}
	if status != models.StatusApproved {
		featured = false
	}

	changed, err := s.repo.TransitionFromPending(ctx, id, status, featured)
	if err != nil {
		return nil, false, storeError("transition story", err)
	}

	story, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return story, changed, nil
}

// BumpCounter applies +1 or -1 to one counter at the storage layer.
func (s *StoryStore) BumpCounter(ctx context.Context, id uuid.UUID, kind models.CounterKind, delta int) error {
	if kind.Column() == "" {
		return invalid("kind", "must be view, like or report")
	}
	if delta != 1 && delta != -1 {
		return invalid("delta", "must be +1 or -1")
	}
	if err := s.repo.BumpCounter(ctx, id, kind, delta); err != nil {
		return storeError("bump "+string(kind)+" counter", err)
	}
	return nil
}

// Featured returns the single featured story, or ErrStoryNotFound.
func (s *StoryStore) Featured(ctx context.Context) (*models.Story, error) {
	story, err := s.repo.Featured(ctx)
	if err != nil {
		return nil, storeError("get featured story", err)
	}
	return story, nil
}

// Delete is the administrative hard delete. Events go with the story.
func (s *StoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError("delete story", err)
	}
	return nil
}

func storeError(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrStoryNotFound
	}
	return persistence(op, err)
}
