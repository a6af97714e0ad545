// Package repository holds the storage contracts for stories and engagement
// events. Implementations must provide atomic counter increments and
// unique-key enforcement; application code never reads then writes a counter.
package repository

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// StoryFilter narrows List. Zero values mean "any".
type StoryFilter struct {
	Status       string
	ReportedOnly bool
	WithReports  bool
	Limit        int
	Offset       int
}

// EventCounts are aggregates recomputed from the event tables.
type EventCounts struct {
	Views   int64
	Likes   int64
	Reports int64
}

type StoryRepository interface {
	Create(ctx context.Context, story *models.Story) error
	Get(ctx context.Context, id uuid.UUID) (*models.Story, error)
	List(ctx context.Context, filter StoryFilter) ([]models.Story, int64, error)

	// TransitionFromPending moves a pending story to status. It reports false
	// without error when the story exists but is no longer pending. When
	// featured is true every other story loses its featured flag in the same
	// transaction.
	TransitionFromPending(ctx context.Context, id uuid.UUID, status string, featured bool) (bool, error)

	// BumpCounter applies delta server-side. Counters never go below zero.
	BumpCounter(ctx context.Context, id uuid.UUID, kind models.CounterKind, delta int) error

	// SetCounters overwrites the cached aggregates only while they still equal
	// cached. It reports false when they moved or the story is gone. Only
	// reconciliation uses it.
	SetCounters(ctx context.Context, id uuid.UUID, cached, counts EventCounts) (bool, error)

	Featured(ctx context.Context) (*models.Story, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	IDs(ctx context.Context) ([]uuid.UUID, error)

	// Delete hard-deletes the story and every engagement event referencing it.
	Delete(ctx context.Context, id uuid.UUID) error
}

type EngagementRepository interface {
	// Insert* return ErrDuplicate when the (story, identity kind, identity key)
	// tuple already exists for that event kind.
	InsertView(ctx context.Context, view *models.StoryView) error
	InsertLike(ctx context.Context, like *models.StoryLike) error
	InsertReport(ctx context.Context, report *models.StoryReport) error

	// DeleteLike reports whether a like row was removed.
	DeleteLike(ctx context.Context, storyID uuid.UUID, kind models.IdentityKind, key string) (bool, error)

	Count(ctx context.Context, storyID uuid.UUID) (EventCounts, error)
}

type UserRepository interface {
	// CreateUser returns ErrDuplicate when the email is already registered.
	CreateUser(ctx context.Context, user *models.User) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}
