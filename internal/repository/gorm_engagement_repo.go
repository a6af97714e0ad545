package repository

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormEngagementRepo struct {
	db *gorm.DB
}

func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &gormEngagementRepo{db: db}
}

// Uniqueness is enforced by the composite unique indexes on each event table;
// inserts are never preceded by an existence check.

func (r *gormEngagementRepo) InsertView(ctx context.Context, view *models.StoryView) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(view).Error)
}

func (r *gormEngagementRepo) InsertLike(ctx context.Context, like *models.StoryLike) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(like).Error)
}

func (r *gormEngagementRepo) InsertReport(ctx context.Context, report *models.StoryReport) error {
	return translate(r.db.WithContext(ctx).Create(report).Error)
}

func (r *gormEngagementRepo) DeleteLike(ctx context.Context, storyID uuid.UUID, kind models.IdentityKind, key string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("story_id = ? AND identity_kind = ? AND identity_key = ?", storyID, kind, key).
		Delete(&models.StoryLike{})
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *gormEngagementRepo) Count(ctx context.Context, storyID uuid.UUID) (EventCounts, error) {
	var counts EventCounts
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.StoryView{}).Where("story_id = ?", storyID).Count(&counts.Views).Error; err != nil {
		return counts, translate(err)
	}
	if err := db.Model(&models.StoryLike{}).Where("story_id = ?", storyID).Count(&counts.Likes).Error; err != nil {
		return counts, translate(err)
	}
	if err := db.Model(&models.StoryReport{}).Where("story_id = ?", storyID).Count(&counts.Reports).Error; err != nil {
		return counts, translate(err)
	}
	return counts, nil
}
