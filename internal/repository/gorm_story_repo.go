package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStoryRepo struct {
	db *gorm.DB
}

func NewStoryRepository(db *gorm.DB) StoryRepository {
	return &gormStoryRepo{db: db}
}

func (r *gormStoryRepo) Create(ctx context.Context, story *models.Story) error {
	if story.ID == uuid.Nil {
		story.ID = uuid.New()
	}
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(story).Error)
}

func (r *gormStoryRepo) Get(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	var story models.Story
	if err := r.db.WithContext(ctx).First(&story, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &story, nil
}

func (r *gormStoryRepo) List(ctx context.Context, filter StoryFilter) ([]models.Story, int64, error) {
	var stories []models.Story
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Story{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ReportedOnly {
		query = query.Where("report_count > 0")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	if filter.ReportedOnly {
		query = query.Order("report_count DESC")
	}
	query = query.Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.WithReports {
		query = query.Preload("Reports", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
	}

	if err := query.Find(&stories).Error; err != nil {
		return nil, 0, translate(err)
	}
	return stories, total, nil
}

func (r *gormStoryRepo) TransitionFromPending(ctx context.Context, id uuid.UUID, status string, featured bool) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Story
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "status").
			First(&current, "id = ?", id).Error; err != nil {
			return err
		}
		if current.Status != models.StatusPending {
			return nil
		}

		// The partial unique index on featured rejects a second holder, so the
		// previous one has to be cleared before this row claims the slot.
		if featured {
			if err := tx.Model(&models.Story{}).
				Where("featured = ? AND id <> ?", true, id).
				UpdateColumn("featured", false).Error; err != nil {
				return err
			}
		}

		result := tx.Model(&models.Story{}).
			Where("id = ? AND status = ?", id, models.StatusPending).
			Updates(map[string]interface{}{
				"status":   status,
				"featured": featured,
			})
		if result.Error != nil {
			return result.Error
		}
		changed = result.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, translate(err)
	}
	return changed, nil
}

func (r *gormStoryRepo) BumpCounter(ctx context.Context, id uuid.UUID, kind models.CounterKind, delta int) error {
	column := kind.Column()
	if column == "" {
		return fmt.Errorf("unknown counter kind %q", kind)
	}

	expr := gorm.Expr(column+" + ?", delta)
	if delta < 0 {
		expr = gorm.Expr("GREATEST("+column+" + ?, 0)", delta)
	}

	result := r.db.WithContext(ctx).Model(&models.Story{}).
		Where("id = ?", id).
		UpdateColumn(column, expr)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormStoryRepo) SetCounters(ctx context.Context, id uuid.UUID, cached, counts EventCounts) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Story{}).
		Where("id = ? AND view_count = ? AND like_count = ? AND report_count = ?",
			id, cached.Views, cached.Likes, cached.Reports).
		UpdateColumns(map[string]interface{}{
			"view_count":   counts.Views,
			"like_count":   counts.Likes,
			"report_count": counts.Reports,
		})
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *gormStoryRepo) Featured(ctx context.Context) (*models.Story, error) {
	var story models.Story
	err := r.db.WithContext(ctx).
		Where("featured = ? AND status = ?", true, models.StatusApproved).
		First(&story).Error
	if err != nil {
		return nil, translate(err)
	}
	return &story, nil
}

func (r *gormStoryRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Story{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	counts := map[string]int64{
		models.StatusPending:  0,
		models.StatusApproved: 0,
		models.StatusDeclined: 0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *gormStoryRepo) IDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.Story{}).Pluck("id", &ids).Error; err != nil {
		return nil, translate(err)
	}
	return ids, nil
}

func (r *gormStoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("story_id = ?", id).Delete(&models.StoryView{}).Error; err != nil {
			return err
		}
		if err := tx.Where("story_id = ?", id).Delete(&models.StoryLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("story_id = ?", id).Delete(&models.StoryReport{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Story{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	return translate(err)
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if isDuplicateError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	if isMissingParent(err) {
		return ErrNotFound
	}
	return err
}

func isDuplicateError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isMissingParent matches an event insert against a story that does not exist.
func isMissingParent(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
