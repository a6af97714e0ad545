package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/repository"
	"github.com/google/uuid"
)

const ReportReasonMaxLen = 500

type ViewResult struct {
	Recorded bool `json:"recorded"`
}

type LikeResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

type ReportResult struct {
	Recorded    bool  `json:"-"`
	ReportCount int64 `json:"report_count"`
}

// EngagementTracker records deduplicated view, like and report events.
// The event rows are the source of truth. Counters on the story are derived
// and are bumped in a second, non-transactional step; a failed bump is
// logged and counted as drift, never returned to the caller.
type EngagementTracker struct {
	events repository.EngagementRepository
	store  *StoryStore
}

func NewEngagementTracker(events repository.EngagementRepository, store *StoryStore) *EngagementTracker {
	return &EngagementTracker{events: events, store: store}
}

func (t *EngagementTracker) RecordView(ctx context.Context, storyID uuid.UUID, id Identity) (*ViewResult, error) {
	kind, key := id.ProxyKey()
	err := t.events.InsertView(ctx, &models.StoryView{
		StoryID:      storyID,
		IdentityKind: kind,
		IdentityKey:  key,
	})
	recorded, err := t.outcome(models.CounterView, err)
	if err != nil {
		return nil, err
	}
	if recorded {
		t.bump(ctx, storyID, models.CounterView, 1)
	}
	return &ViewResult{Recorded: recorded}, nil
}

// ToggleLike removes an existing like or adds a new one. Delete goes first so
// the unique index, not a prior read, decides which way the toggle goes.
func (t *EngagementTracker) ToggleLike(ctx context.Context, storyID uuid.UUID, id Identity) (*LikeResult, error) {
	kind, key := id.ProxyKey()

	removed, err := t.events.DeleteLike(ctx, storyID, kind, key)
	if err != nil {
		metrics.EngagementEvents.WithLabelValues(string(models.CounterLike), metrics.ResultError).Inc()
		return nil, storeError("delete like", err)
	}

	liked := !removed
	if removed {
		metrics.EngagementEvents.WithLabelValues(string(models.CounterLike), metrics.ResultRemoved).Inc()
		t.bump(ctx, storyID, models.CounterLike, -1)
	} else {
		err := t.events.InsertLike(ctx, &models.StoryLike{
			StoryID:      storyID,
			IdentityKind: kind,
			IdentityKey:  key,
		})
		// A duplicate here means a concurrent toggle from the same identity
		// inserted first; the like exists either way.
		recorded, err := t.outcome(models.CounterLike, err)
		if err != nil {
			return nil, err
		}
		if recorded {
			t.bump(ctx, storyID, models.CounterLike, 1)
		}
	}

	story, err := t.store.Get(ctx, storyID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{Liked: liked, LikeCount: story.LikeCount}, nil
}

// RecordReport accepts one report per identity. A repeat report is a soft
// rejection: Recorded is false and no error is returned.
func (t *EngagementTracker) RecordReport(ctx context.Context, storyID uuid.UUID, id Identity, reason string) (*ReportResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("reason", "is required")
	}
	if !utf8.ValidString(reason) || utf8.RuneCountInString(reason) > ReportReasonMaxLen {
		return nil, invalid("reason", "must be at most 500 characters of text")
	}

	kind, key := id.ProxyKey()
	err := t.events.InsertReport(ctx, &models.StoryReport{
		StoryID:      storyID,
		IdentityKind: kind,
		IdentityKey:  key,
		Reason:       reason,
	})
	recorded, err := t.outcome(models.CounterReport, err)
	if err != nil {
		return nil, err
	}
	if recorded {
		t.bump(ctx, storyID, models.CounterReport, 1)
	}

	story, err := t.store.Get(ctx, storyID)
	if err != nil {
		return nil, err
	}
	return &ReportResult{Recorded: recorded, ReportCount: story.ReportCount}, nil
}

// outcome classifies an event insert. Duplicates are a normal result.
func (t *EngagementTracker) outcome(kind models.CounterKind, err error) (bool, error) {
	switch {
	case err == nil:
		metrics.EngagementEvents.WithLabelValues(string(kind), metrics.ResultRecorded).Inc()
		return true, nil
	case errors.Is(err, repository.ErrDuplicate):
		metrics.EngagementEvents.WithLabelValues(string(kind), metrics.ResultDuplicate).Inc()
		return false, nil
	default:
		metrics.EngagementEvents.WithLabelValues(string(kind), metrics.ResultError).Inc()
		return false, storeError("record "+string(kind), err)
	}
}

func (t *EngagementTracker) bump(ctx context.Context, storyID uuid.UUID, kind models.CounterKind, delta int) {
	if err := t.store.BumpCounter(ctx, storyID, kind, delta); err != nil {
		metrics.CounterDrift.WithLabelValues(string(kind)).Inc()
		slog.WarnContext(ctx, "counter bump failed after event write",
			"action", "counter_bump",
			"story_id", storyID.String(),
			"kind", string(kind),
			"delta", delta,
			"error", err,
		)
	}
}
