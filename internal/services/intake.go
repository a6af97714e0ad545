package services

import (
	"context"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/models"
)

// Intake is the submission pipeline: sanitize, flag, then store as pending.
type Intake struct {
	sanitizer *ContentSanitizer
	filter    *ContentFilter
	store     *StoryStore
}

func NewIntake(sanitizer *ContentSanitizer, filter *ContentFilter, store *StoryStore) *Intake {
	return &Intake{sanitizer: sanitizer, filter: filter, store: store}
}

type Submission struct {
	Title    string
	Body     string
	Category string
}

func (in *Intake) Submit(ctx context.Context, id Identity, sub Submission) (*models.Story, error) {
	content, err := in.sanitizer.Sanitize(sub.Title, sub.Body, sub.Category)
	if err != nil {
		return nil, err
	}

	flags := in.filter.Flags(content.Title + "\n" + content.Body)

	tier := id.Tier
	if tier == "" {
		tier = models.TierAnonymous
	}

	story, err := in.store.Create(ctx, content, tier, flags)
	if err != nil {
		slog.ErrorContext(ctx, "story submission failed", "tier", tier, "error", err)
		return nil, err
	}

	slog.InfoContext(ctx, "story submitted",
		"story_id", story.ID.String(),
		"tier", tier,
		"category", story.Category,
		"flags", len(flags),
	)
	return story, nil
}
