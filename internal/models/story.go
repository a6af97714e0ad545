package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDeclined = "declined"
)

const (
	TierAnonymous  = "anonymous"
	TierRegistered = "registered"
	TierStaff      = "staff"
)

// DefaultCategory is applied when a submission omits its category.
const DefaultCategory = "general"

// StoryCategories is the closed set of categories a story can be filed under.
var StoryCategories = []string{
	"academics", "campus_life", "relationships", "wellness",
	"career", "humor", DefaultCategory,
}

// Story is an anonymous submission moving through moderation.
type Story struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title         string         `gorm:"size:200;not null" json:"title"`
	Body          string         `gorm:"type:text;not null" json:"body"`
	Category      string         `gorm:"type:varchar(30);not null;index" json:"category"`
	SubmitterTier string         `gorm:"type:varchar(20);not null" json:"submitter_tier"`
	Status        string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Featured      bool           `gorm:"not null;default:false;uniqueIndex:idx_stories_single_featured,where:featured = true" json:"featured"`
	ContentFlags  datatypes.JSON `gorm:"type:jsonb;default:'[]'" json:"content_flags,omitempty"`
	ViewCount     int64          `gorm:"not null;default:0" json:"view_count"`
	LikeCount     int64          `gorm:"not null;default:0" json:"like_count"`
	ReportCount   int64          `gorm:"not null;default:0;index" json:"report_count"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Reports       []StoryReport  `gorm:"foreignKey:StoryID;constraint:OnDelete:CASCADE" json:"reports,omitempty"`
}

// IsCategory reports whether c is one of StoryCategories.
func IsCategory(c string) bool {
	for _, known := range StoryCategories {
		if known == c {
			return true
		}
	}
	return false
}
