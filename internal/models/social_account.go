package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/socialflowhq/socialflow-api/internal/platform"
)

// SocialAccount is a connected identity on one platform for one
// organization. Token fields hold vault ciphertext, never plaintext.
type SocialAccount struct {
	ID                int64             `db:"id" json:"id"`
	OrganizationID    int64             `db:"organization_id" json:"organization_id"`
	Platform          platform.Platform `db:"platform" json:"platform"`
	ExternalAccountID string            `db:"external_account_id" json:"external_account_id"`
	DisplayName       string            `db:"display_name" json:"display_name"`
	Username          string            `db:"username" json:"username,omitempty"`
	AvatarURL         string            `db:"avatar_url" json:"avatar_url,omitempty"`
	AccessToken       string            `db:"access_token_encrypted" json:"-"`
	RefreshToken      string            `db:"refresh_token_encrypted" json:"-"`
	TokenExpiresAt    *time.Time        `db:"token_expires_at" json:"token_expires_at,omitempty"`
	Scopes            pq.StringArray    `db:"scopes" json:"scopes"`
	IsActive          bool              `db:"is_active" json:"is_active"`
	LastError         string            `db:"last_error" json:"last_error,omitempty"`
	LastRefreshAt     *time.Time        `db:"last_refresh_at" json:"last_refresh_at,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}
