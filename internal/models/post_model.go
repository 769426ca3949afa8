package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/socialflowhq/socialflow-api/internal/platform"
)

type Post struct {
	ID              int64          `db:"id" json:"id"`
	OrganizationID  int64          `db:"organization_id" json:"organization_id"`
	UserID          int64          `db:"user_id" json:"user_id"`
	Content         string         `db:"content" json:"content"`
	TargetPlatforms pq.StringArray `db:"target_platforms" json:"target_platforms"`
	Status          string         `db:"status" json:"status"`
	ScheduledFor    *time.Time     `db:"scheduled_for" json:"scheduled_for,omitempty"`
	PublishedAt     *time.Time     `db:"published_at" json:"published_at,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// PostVariant carries per-platform overrides of the post's default
// content. Absent variant means the default content is published as-is.
type PostVariant struct {
	PostID       int64             `db:"post_id" json:"post_id"`
	Platform     platform.Platform `db:"platform" json:"platform"`
	Content      string            `db:"content" json:"content"`
	Hashtags     pq.StringArray    `db:"hashtags" json:"hashtags"`
	CallToAction string            `db:"call_to_action" json:"call_to_action"`
}

type PostMedia struct {
	ID           int64     `db:"id" json:"id"`
	PostID       int64     `db:"post_id" json:"post_id"`
	FileURL      string    `db:"file_url" json:"file_url"`
	FileType     string    `db:"file_type" json:"file_type"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
)
