package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/repository"
	"github.com/google/uuid"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

type Page struct {
	Limit  int
	Offset int
}

func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type ModerationResult struct {
	Story   *models.Story `json:"story"`
	Changed bool          `json:"changed"`
}

type ModerationStats struct {
	Counts     map[string]int64 `json:"counts"`
	Total      int64            `json:"total"`
	FeaturedID *uuid.UUID       `json:"featured_id"`
}

// ModerationQueue is the staff surface over the story lifecycle. Callers are
// expected to have checked the staff tier already.
type ModerationQueue struct {
	repo  repository.StoryRepository
	store *StoryStore
}

func NewModerationQueue(repo repository.StoryRepository, store *StoryStore) *ModerationQueue {
	return &ModerationQueue{repo: repo, store: store}
}

func (q *ModerationQueue) ListPending(ctx context.Context, page Page) ([]models.Story, int64, error) {
	return q.list(ctx, repository.StoryFilter{Status: models.StatusPending}, page)
}

// ListReported returns stories with at least one report, most reported
// first, each carrying its report reasons.
func (q *ModerationQueue) ListReported(ctx context.Context, page Page) ([]models.Story, int64, error) {
	return q.list(ctx, repository.StoryFilter{ReportedOnly: true, WithReports: true}, page)
}

// ListAll lists every story, optionally narrowed to one status.
func (q *ModerationQueue) ListAll(ctx context.Context, status string, page Page) ([]models.Story, int64, error) {
	switch status {
	case "", models.StatusPending, models.StatusApproved, models.StatusDeclined:
	default:
		return nil, 0, invalid("status", "must be pending, approved or declined")
	}
	return q.list(ctx, repository.StoryFilter{Status: status}, page)
}

func (q *ModerationQueue) list(ctx context.Context, filter repository.StoryFilter, page Page) ([]models.Story, int64, error) {
	page = page.Normalize()
	filter.Limit = page.Limit
	filter.Offset = page.Offset

	stories, total, err := q.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, persistence("list stories", err)
	}
	if stories == nil {
		stories = []models.Story{}
	}
	return stories, total, nil
}

// Moderate applies a decision. Deciding on a story that is no longer pending
// returns it unchanged.
func (q *ModerationQueue) Moderate(ctx context.Context, id uuid.UUID, decision string, featured bool) (*ModerationResult, error) {
	if decision != models.StatusApproved && decision != models.StatusDeclined {
		metrics.ModerationDecisions.WithLabelValues("invalid", metrics.ResultError).Inc()
		return nil, ErrInvalidDecision
	}

	story, changed, err := q.store.Transition(ctx, id, decision, featured)
	if err != nil {
		metrics.ModerationDecisions.WithLabelValues(decision, metrics.ResultError).Inc()
		if !errors.Is(err, ErrStoryNotFound) {
			slog.ErrorContext(ctx, "moderation failed", "story_id", id.String(), "decision", decision, "error", err)
		}
		return nil, err
	}

	result := metrics.ResultNoop
	if changed {
		result = metrics.ResultChanged
		slog.InfoContext(ctx, "story moderated",
			"story_id", id.String(),
			"decision", decision,
			"featured", story.Featured,
		)
	}
	metrics.ModerationDecisions.WithLabelValues(decision, result).Inc()

	return &ModerationResult{Story: story, Changed: changed}, nil
}

// BulkModerate applies decision to every id and never stops at the first
// failure. Bulk actions never feature: there is a single featured slot.
func (q *ModerationQueue) BulkModerate(ctx context.Context, ids []uuid.UUID, decision string) (*BulkResult, error) {
	if decision != models.StatusApproved && decision != models.StatusDeclined {
		return nil, ErrInvalidDecision
	}
	if len(ids) == 0 {
		return nil, invalid("story_ids", "must not be empty")
	}

	result := &BulkResult{
		Succeeded: make([]uuid.UUID, 0, len(ids)),
		Failed:    []BulkFailure{},
	}
	for _, id := range ids {
		if _, err := q.Moderate(ctx, id, decision, false); err != nil {
			result.Failed = append(result.Failed, BulkFailure{ID: id, Error: bulkReason(err), Err: err})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	if len(result.Failed) > 0 {
		slog.WarnContext(ctx, "bulk moderation partially failed",
			"decision", decision,
			"succeeded", len(result.Succeeded),
			"failed", len(result.Failed),
		)
	}
	return result, nil
}

func (q *ModerationQueue) Stats(ctx context.Context) (*ModerationStats, error) {
	counts, err := q.repo.CountByStatus(ctx)
	if err != nil {
		return nil, persistence("count stories", err)
	}

	stats := &ModerationStats{Counts: map[string]int64{
		models.StatusPending:  0,
		models.StatusApproved: 0,
		models.StatusDeclined: 0,
	}}
	for status, n := range counts {
		stats.Counts[status] = n
		stats.Total += n
	}

	featured, err := q.store.Featured(ctx)
	switch {
	case err == nil:
		stats.FeaturedID = &featured.ID
	case !errors.Is(err, ErrStoryNotFound):
		return nil, err
	}
	return stats, nil
}

// Delete hard-deletes a story and its engagement events.
func (q *ModerationQueue) Delete(ctx context.Context, id uuid.UUID) error {
	if err := q.store.Delete(ctx, id); err != nil {
		return err
	}
	slog.WarnContext(ctx, "story deleted", "story_id", id.String(), "action", "hard_delete")
	return nil
}

// bulkReason keeps storage details out of the per-item response.
func bulkReason(err error) string {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return "persistence error"
	}
	return err.Error()
}
