package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/socialflowhq/socialflow-api/internal/models"
	"github.com/socialflowhq/socialflow-api/internal/platform"
)

type SocialAccountRepository interface {
	Upsert(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.SocialAccount, error)
	ListByOrganization(ctx context.Context, orgID int64) ([]*models.SocialAccount, error)
	ListActiveByOrgAndPlatform(ctx context.Context, orgID int64, p platform.Platform) ([]*models.SocialAccount, error)
	ListExpiring(ctx context.Context, within time.Duration) ([]*models.SocialAccount, error)
	CheckByOrganization(ctx context.Context, accountID, orgID int64) (bool, error)
	UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt *time.Time) error
	MarkRefreshFailed(ctx context.Context, id int64, reason string) error
	Deactivate(ctx context.Context, id int64) error
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

const socialAccountColumns = `id, organization_id, platform, external_account_id, display_name,
	username, avatar_url, access_token_encrypted, refresh_token_encrypted,
	token_expires_at, scopes, is_active, last_error, last_refresh_at, created_at, updated_at`

func (r *socialAccountRepository) Upsert(ctx context.Context, tx *sql.Tx, sa *models.SocialAccount) (int64, error) {
	query := `
		INSERT INTO social_accounts (
			organization_id,
			platform,
			external_account_id,
			display_name,
			username,
			avatar_url,
			access_token_encrypted,
			refresh_token_encrypted,
			token_expires_at,
			scopes,
			is_active,
			last_error,
			last_refresh_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, '', CURRENT_TIMESTAMP)
		ON CONFLICT (organization_id, platform, external_account_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			username = EXCLUDED.username,
			avatar_url = EXCLUDED.avatar_url,
			access_token_encrypted = EXCLUDED.access_token_encrypted,
			refresh_token_encrypted = EXCLUDED.refresh_token_encrypted,
			token_expires_at = EXCLUDED.token_expires_at,
			scopes = EXCLUDED.scopes,
			is_active = TRUE,
			last_error = '',
			last_refresh_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	args := []interface{}{
		sa.OrganizationID,
		sa.Platform.String(),
		sa.ExternalAccountID,
		sa.DisplayName,
		sa.Username,
		sa.AvatarURL,
		sa.AccessToken,
		sa.RefreshToken,
		sa.TokenExpiresAt,
		pq.Array([]string(sa.Scopes)),
	}

	var id int64
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *socialAccountRepository) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *socialAccountRepository) ListByOrganization(ctx context.Context, orgID int64) ([]*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts WHERE organization_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *socialAccountRepository) ListActiveByOrgAndPlatform(ctx context.Context, orgID int64, p platform.Platform) ([]*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts
		WHERE organization_id = $1 AND platform = $2 AND is_active ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, orgID, p.String())
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *socialAccountRepository) ListExpiring(ctx context.Context, within time.Duration) ([]*models.SocialAccount, error) {
	query := `SELECT ` + socialAccountColumns + ` FROM social_accounts
		WHERE is_active
		AND token_expires_at IS NOT NULL
		AND token_expires_at <= $1`
	rows, err := r.db.QueryContext(ctx, query, time.Now().Add(within))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *socialAccountRepository) CheckByOrganization(ctx context.Context, accountID, orgID int64) (bool, error) {
	query := `SELECT 1 FROM social_accounts WHERE id = $1 AND organization_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, accountID, orgID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// UpdateTokens stores freshly encrypted credentials after a successful
// refresh and reactivates the account.
func (r *socialAccountRepository) UpdateTokens(ctx context.Context, id int64, accessToken, refreshToken string, expiresAt *time.Time) error {
	query := `
		UPDATE social_accounts
		SET access_token_encrypted = $2,
			refresh_token_encrypted = COALESCE(NULLIF($3, ''), refresh_token_encrypted),
			token_expires_at = $4,
			is_active = TRUE,
			last_error = '',
			last_refresh_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, accessToken, refreshToken, expiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// MarkRefreshFailed deactivates the account; only a human reconnect
// brings it back.
func (r *socialAccountRepository) MarkRefreshFailed(ctx context.Context, id int64, reason string) error {
	query := `
		UPDATE social_accounts
		SET is_active = FALSE,
			last_error = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, reason)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE social_accounts SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *socialAccountRepository) scanOne(row *sql.Row) (*models.SocialAccount, error) {
	var sa models.SocialAccount
	err := row.Scan(&sa.ID, &sa.OrganizationID, &sa.Platform, &sa.ExternalAccountID, &sa.DisplayName,
		&sa.Username, &sa.AvatarURL, &sa.AccessToken, &sa.RefreshToken,
		&sa.TokenExpiresAt, &sa.Scopes, &sa.IsActive, &sa.LastError, &sa.LastRefreshAt, &sa.CreatedAt, &sa.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &sa, nil
}

func (r *socialAccountRepository) scanAll(rows *sql.Rows) ([]*models.SocialAccount, error) {
	var accounts []*models.SocialAccount
	for rows.Next() {
		var sa models.SocialAccount
		err := rows.Scan(&sa.ID, &sa.OrganizationID, &sa.Platform, &sa.ExternalAccountID, &sa.DisplayName,
			&sa.Username, &sa.AvatarURL, &sa.AccessToken, &sa.RefreshToken,
			&sa.TokenExpiresAt, &sa.Scopes, &sa.IsActive, &sa.LastError, &sa.LastRefreshAt, &sa.CreatedAt, &sa.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &sa)
	}
	return accounts, rows.Err()
}
