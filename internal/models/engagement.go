package models

import (
	"time"

	"github.com/google/uuid"
)

// CounterKind names one of the three engagement counters on a Story.
type CounterKind string

const (
	CounterView   CounterKind = "view"
	CounterLike   CounterKind = "like"
	CounterReport CounterKind = "report"
)

// Column returns the stories column that caches the aggregate for k.
func (k CounterKind) Column() string {
	switch k {
	case CounterView:
		return "view_count"
	case CounterLike:
		return "like_count"
	case CounterReport:
		return "report_count"
	}
	return ""
}

// IdentityKind is the proxy an engagement event was keyed on.
// Only one proxy is stored per event.
type IdentityKind string

const (
	IdentityAccount IdentityKind = "account"
	IdentitySession IdentityKind = "session"
	IdentityAddress IdentityKind = "address"
)

// StoryView records that an identity has seen a story. Never deleted.
type StoryView struct {
	ID           uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StoryID      uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_story_views_identity,priority:1" json:"story_id"`
	IdentityKind IdentityKind `gorm:"type:varchar(10);not null;uniqueIndex:idx_story_views_identity,priority:2" json:"-"`
	IdentityKey  string       `gorm:"size:128;not null;uniqueIndex:idx_story_views_identity,priority:3" json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	Story        Story        `gorm:"foreignKey:StoryID;constraint:OnDelete:CASCADE" json:"-"`
}

// StoryLike is deleted on unlike so the same identity can like again later.
type StoryLike struct {
	ID           uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StoryID      uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_story_likes_identity,priority:1" json:"story_id"`
	IdentityKind IdentityKind `gorm:"type:varchar(10);not null;uniqueIndex:idx_story_likes_identity,priority:2" json:"-"`
	IdentityKey  string       `gorm:"size:128;not null;uniqueIndex:idx_story_likes_identity,priority:3" json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	Story        Story        `gorm:"foreignKey:StoryID;constraint:OnDelete:CASCADE" json:"-"`
}

// StoryReport doubles as the moderation audit trail of report reasons.
type StoryReport struct {
	ID           uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StoryID      uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_story_reports_identity,priority:1" json:"story_id"`
	IdentityKind IdentityKind `gorm:"type:varchar(10);not null;uniqueIndex:idx_story_reports_identity,priority:2" json:"-"`
	IdentityKey  string       `gorm:"size:128;not null;uniqueIndex:idx_story_reports_identity,priority:3" json:"-"`
	Reason       string       `gorm:"size:500;not null" json:"reason"`
	CreatedAt    time.Time    `json:"created_at"`
}
