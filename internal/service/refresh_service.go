package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	config "github.com/socialflowhq/socialflow-api/configs"
	"github.com/socialflowhq/socialflow-api/internal/models"
	"github.com/socialflowhq/socialflow-api/internal/platform"
	"github.com/socialflowhq/socialflow-api/internal/repository"
	"github.com/socialflowhq/socialflow-api/internal/transfer"
	"github.com/socialflowhq/socialflow-api/internal/vault"
)

// RefreshService keeps stored access tokens usable. EnsureFreshToken is
// called on the hot path right before a publish; RefreshExpiring is the
// periodic sweep that renews tokens before they are needed.
type RefreshService interface {
	EnsureFreshToken(ctx context.Context, account *models.SocialAccount) (string, error)
	RefreshAccount(ctx context.Context, orgID, accountID int64) error
	RefreshExpiring(ctx context.Context) (int, error)
}

type refreshService struct {
	cfg    config.Config
	sa     repository.SocialAccountRepository
	audit  AuditService
	vault  *vault.Vault
	client *http.Client

	// overridable in tests
	graphURL    string
	linkedinURL string

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewRefreshService(cfg config.Config, sa repository.SocialAccountRepository, audit AuditService, v *vault.Vault) RefreshService {
	return &refreshService{
		cfg:         cfg,
		sa:          sa,
		audit:       audit,
		vault:       v,
		client:      &http.Client{Timeout: cfg.Dispatcher.RequestTimeout},
		graphURL:    "https://graph.facebook.com/v18.0",
		linkedinURL: "https://api.linkedin.com",
		locks:       make(map[int64]*sync.Mutex),
	}
}

// accountLock serializes refreshes per account so concurrent jobs for the
// same account do not each burn a refresh grant.
func (s *refreshService) accountLock(id int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// EnsureFreshToken returns a plaintext access token valid for at least the
// configured leeway. Accounts without an expiry hold long-lived tokens and
// are returned as-is. A failed refresh deactivates the account and returns
// *TokenRefreshError; a missing refresh token returns *NoRefreshTokenError.
// Both are terminal for the account until a human reconnects it.
func (s *refreshService) EnsureFreshToken(ctx context.Context, account *models.SocialAccount) (string, error) {
	lock := s.accountLock(account.ID)
	lock.Lock()
	defer lock.Unlock()

	// Another job may have refreshed while we waited for the lock.
	fresh, err := s.sa.GetByID(ctx, account.ID)
	if err != nil {
		return "", err
	}
	if fresh != nil {
		account = fresh
	}

	accessToken, err := s.vault.Decrypt(account.AccessToken)
	if err != nil {
		slog.Info(err.Error())
		return "", s.markFailed(ctx, account, fmt.Sprintf("stored token unreadable: %s", err.Error()))
	}

	if account.TokenExpiresAt == nil {
		return accessToken, nil
	}
	if time.Until(*account.TokenExpiresAt) > s.cfg.Dispatcher.RefreshLeeway {
		return accessToken, nil
	}

	switch account.Platform {
	case platform.Facebook, platform.Instagram:
		return s.refreshFacebook(ctx, account, accessToken)
	case platform.Linkedin:
		return s.refreshLinkedin(ctx, account)
	}

	return "", s.markFailed(ctx, account, fmt.Sprintf("no refresh strategy for platform %s", account.Platform))
}

// refreshFacebook exchanges the current token for a new long-lived one via
// the fb_exchange_token grant. Instagram accounts carry a Facebook user
// token and go through the same exchange.
func (s *refreshService) refreshFacebook(ctx context.Context, account *models.SocialAccount, currentToken string) (string, error) {
	params := url.Values{}
	params.Add("grant_type", "fb_exchange_token")
	params.Add("client_id", s.cfg.FacebookAppID)
	params.Add("client_secret", s.cfg.FacebookAppSecret)
	params.Add("fb_exchange_token", currentToken)

	reqURL := fmt.Sprintf("%s/oauth/access_token?%s", s.graphURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", s.markFailed(ctx, account, err.Error())
	}
	defer resp.Body.Close()

	var tokenResp transfer.FacebookTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		slog.Info(err.Error())
		return "", s.markFailed(ctx, account, "malformed token response")
	}
	if tokenResp.Error != nil {
		return "", s.markFailed(ctx, account, tokenResp.Error.Message)
	}
	if tokenResp.AccessToken == "" {
		return "", s.markFailed(ctx, account, fmt.Sprintf("empty token in response, status %d", resp.StatusCode))
	}

	return s.storeRefreshed(ctx, account, tokenResp.AccessToken, "", tokenResp.ExpiresIn)
}

func (s *refreshService) refreshLinkedin(ctx context.Context, account *models.SocialAccount) (string, error) {
	if account.RefreshToken == "" {
		if err := s.sa.MarkRefreshFailed(ctx, account.ID, "no refresh token stored"); err != nil {
			slog.Info(err.Error())
		}
		s.audit.Record(ctx, account.OrganizationID, 0, models.AuditAccountRefreshFail,
			"social_account", account.ID, "no refresh token stored")
		return "", &NoRefreshTokenError{AccountID: account.ID}
	}

	refreshToken, err := s.vault.Decrypt(account.RefreshToken)
	if err != nil {
		slog.Info(err.Error())
		return "", s.markFailed(ctx, account, fmt.Sprintf("stored refresh token unreadable: %s", err.Error()))
	}

	form := url.Values{}
	form.Add("grant_type", "refresh_token")
	form.Add("refresh_token", refreshToken)
	form.Add("client_id", s.cfg.LinkedinClientID)
	form.Add("client_secret", s.cfg.LinkedinClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.linkedinURL+"/oauth/v2/accessToken", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", s.markFailed(ctx, account, err.Error())
	}
	defer resp.Body.Close()

	var tokenResp transfer.LinkedinTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		slog.Info(err.Error())
		return "", s.markFailed(ctx, account, "malformed token response")
	}
	if tokenResp.Error != "" {
		return "", s.markFailed(ctx, account, fmt.Sprintf("%s: %s", tokenResp.Error, tokenResp.ErrorDescription))
	}
	if tokenResp.AccessToken == "" {
		return "", s.markFailed(ctx, account, fmt.Sprintf("empty token in response, status %d", resp.StatusCode))
	}

	return s.storeRefreshed(ctx, account, tokenResp.AccessToken, tokenResp.RefreshToken, tokenResp.ExpiresIn)
}

func (s *refreshService) storeRefreshed(ctx context.Context, account *models.SocialAccount, accessToken, refreshToken string, expiresIn int64) (string, error) {
	encryptedAccess, err := s.vault.Encrypt(accessToken)
	if err != nil {
		return "", err
	}

	var encryptedRefresh string
	if refreshToken != "" {
		encryptedRefresh, err = s.vault.Encrypt(refreshToken)
		if err != nil {
			return "", err
		}
	}

	var expiresAt *time.Time
	if expiresIn > 0 {
		t := time.Now().Add(time.Duration(expiresIn) * time.Second)
		expiresAt = &t
	}

	if err := s.sa.UpdateTokens(ctx, account.ID, encryptedAccess, encryptedRefresh, expiresAt); err != nil {
		return "", fmt.Errorf("error storing refreshed tokens: %w", err)
	}

	s.audit.Record(ctx, account.OrganizationID, 0, models.AuditAccountRefreshed,
		"social_account", account.ID, account.Platform.String())
	return accessToken, nil
}

func (s *refreshService) markFailed(ctx context.Context, account *models.SocialAccount, reason string) error {
	if err := s.sa.MarkRefreshFailed(ctx, account.ID, reason); err != nil {
		slog.Info(err.Error())
	}
	s.audit.Record(ctx, account.OrganizationID, 0, models.AuditAccountRefreshFail,
		"social_account", account.ID, reason)
	return &TokenRefreshError{AccountID: account.ID, Reason: reason}
}

// RefreshAccount force-refreshes a single account on user request.
func (s *refreshService) RefreshAccount(ctx context.Context, orgID, accountID int64) error {
	account, err := s.sa.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("error fetching social account: %w", err)
	}
	if account == nil || account.OrganizationID != orgID {
		return fmt.Errorf("social account not found")
	}

	lock := s.accountLock(account.ID)
	lock.Lock()
	defer lock.Unlock()

	accessToken, err := s.vault.Decrypt(account.AccessToken)
	if err != nil {
		slog.Info(err.Error())
		return s.markFailed(ctx, account, fmt.Sprintf("stored token unreadable: %s", err.Error()))
	}

	switch account.Platform {
	case platform.Facebook, platform.Instagram:
		_, err = s.refreshFacebook(ctx, account, accessToken)
	case platform.Linkedin:
		_, err = s.refreshLinkedin(ctx, account)
	default:
		err = s.markFailed(ctx, account, fmt.Sprintf("no refresh strategy for platform %s", account.Platform))
	}
	return err
}

// RefreshExpiring renews every active account whose token expires within
// the leeway window. Returns how many accounts were refreshed.
func (s *refreshService) RefreshExpiring(ctx context.Context) (int, error) {
	accounts, err := s.sa.ListExpiring(ctx, s.cfg.Dispatcher.RefreshLeeway)
	if err != nil {
		return 0, fmt.Errorf("error listing expiring accounts: %w", err)
	}

	refreshed := 0
	for _, account := range accounts {
		if _, err := s.EnsureFreshToken(ctx, account); err != nil {
			slog.Info(err.Error())
			continue
		}
		refreshed++
	}
	return refreshed, nil
}
