package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo    *memory.Store
	store   *StoryStore
	intake  *Intake
	tracker *EngagementTracker
	queue   *ModerationQueue
}

func newFixture() *fixture {
	repo := memory.New()
	store := NewStoryStore(repo)
	return &fixture{
		repo:    repo,
		store:   store,
		intake:  NewIntake(NewContentSanitizer(), NewContentFilter(), store),
		tracker: NewEngagementTracker(repo, store),
		queue:   NewModerationQueue(repo, store),
	}
}

func (f *fixture) submit(t *testing.T, title string) *models.Story {
	t.Helper()
	story, err := f.intake.Submit(context.Background(), Identity{Tier: models.TierAnonymous}, Submission{
		Title: title,
		Body:  validBody,
	})
	require.NoError(t, err)
	return story
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.Story {
	t.Helper()
	story, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	return story
}

func session(token string) Identity {
	return Identity{Tier: models.TierAnonymous, SessionToken: token, NetworkAddress: "192.0.2.10"}
}

// brokenCounters fails every counter bump while event writes still succeed.
type brokenCounters struct {
	*memory.Store
}

func (b brokenCounters) BumpCounter(context.Context, uuid.UUID, models.CounterKind, int) error {
	return errors.New("connection reset by peer")
}
