package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/logging"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/repository"
	"github.com/google/uuid"
)

// ReconcileReport summarizes one pass.
type ReconcileReport struct {
	Scanned   int   `json:"scanned"`
	Corrected int   `json:"corrected"`
	Skipped   int   `json:"skipped"`
	Failed    int   `json:"failed"`
	TookMs    int64 `json:"took_ms"`
}

// ReconcileJob rewrites story counters from the engagement event tables.
// It is the only data-correction path for view, like and report counts.
type ReconcileJob struct {
	stories repository.StoryRepository
	events  repository.EngagementRepository
	mu      sync.Mutex
}

func NewReconcileJob(stories repository.StoryRepository, events repository.EngagementRepository) *ReconcileJob {
	return &ReconcileJob{stories: stories, events: events}
}

// Run satisfies cron.Job.
func (j *ReconcileJob) Run() {
	ctx := logging.WithTraceID(context.Background(), "job-reconcile-"+uuid.NewString())
	if _, err := j.Reconcile(ctx); err != nil {
		slog.ErrorContext(ctx, "counter reconciliation failed", "action", "reconcile", "error", err)
	}
}

// Reconcile scans every story. Overlapping calls are serialized.
func (j *ReconcileJob) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	start := time.Now()
	defer func() { metrics.ReconcileDuration.Observe(time.Since(start).Seconds()) }()

	ids, err := j.stories.IDs(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Scanned++

		result, err := j.reconcileStory(ctx, id)
		if err != nil {
			report.Failed++
			slog.WarnContext(ctx, "story reconciliation failed",
				"action", "reconcile",
				"story_id", id.String(),
				"error", err,
			)
			continue
		}
		switch result {
		case storyCorrected:
			report.Corrected++
		case storySkipped:
			report.Skipped++
		}
	}

	report.TookMs = time.Since(start).Milliseconds()
	slog.InfoContext(ctx, "counter reconciliation finished",
		"scanned", report.Scanned,
		"corrected", report.Corrected,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"took_ms", report.TookMs,
	)
	return report, nil
}

type storyResult int

const (
	storyInSync storyResult = iota
	storyCorrected
	// A bump landed between reading the story and writing; the next pass
	// picks it up.
	storySkipped
)

func (j *ReconcileJob) reconcileStory(ctx context.Context, id uuid.UUID) (storyResult, error) {
	story, err := j.stories.Get(ctx, id)
	if err != nil {
		return storyInSync, err
	}
	counts, err := j.events.Count(ctx, id)
	if err != nil {
		return storyInSync, err
	}

	cached := repository.EventCounts{
		Views:   story.ViewCount,
		Likes:   story.LikeCount,
		Reports: story.ReportCount,
	}
	if cached == counts {
		return storyInSync, nil
	}

	set, err := j.stories.SetCounters(ctx, id, cached, counts)
	if err != nil {
		return storyInSync, err
	}
	if !set {
		slog.DebugContext(ctx, "story counters moved during reconciliation",
			"action", "reconcile",
			"story_id", id.String(),
		)
		return storySkipped, nil
	}

	for kind, pair := range map[models.CounterKind][2]int64{
		models.CounterView:   {cached.Views, counts.Views},
		models.CounterLike:   {cached.Likes, counts.Likes},
		models.CounterReport: {cached.Reports, counts.Reports},
	} {
		if pair[0] != pair[1] {
			metrics.DriftCorrected.WithLabelValues(string(kind)).Inc()
			slog.InfoContext(ctx, "counter drift corrected",
				"story_id", id.String(),
				"kind", string(kind),
				"cached", pair[0],
				"actual", pair[1],
			)
		}
	}
	return storyCorrected, nil
}
