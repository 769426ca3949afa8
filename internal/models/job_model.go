package models

import (
	"encoding/json"
	"time"

	"github.com/socialflowhq/socialflow-api/internal/platform"
)

// Job is one attempted delivery of one Post to one SocialAccount. Rows are
// never deleted; terminal jobs double as the audit log of what was tried.
type Job struct {
	ID               int64             `db:"id" json:"id"`
	PostID           int64             `db:"post_id" json:"post_id"`
	SocialAccountID  int64             `db:"social_account_id" json:"social_account_id"`
	OrganizationID   int64             `db:"organization_id" json:"organization_id"`
	Platform         platform.Platform `db:"platform" json:"platform"`
	ScheduledFor     time.Time         `db:"scheduled_for" json:"scheduled_for"`
	Status           string            `db:"status" json:"status"`
	Attempts         int               `db:"attempts" json:"attempts"`
	MaxAttempts      int               `db:"max_attempts" json:"max_attempts"`
	LastAttemptAt    *time.Time        `db:"last_attempt_at" json:"last_attempt_at,omitempty"`
	LastError        string            `db:"last_error" json:"last_error,omitempty"`
	PlatformPostID   string            `db:"platform_post_id" json:"platform_post_id,omitempty"`
	PlatformResponse json.RawMessage   `db:"platform_response" json:"platform_response,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)
