package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/linkedin"

	config "github.com/socialflowhq/socialflow-api/configs"
	"github.com/socialflowhq/socialflow-api/internal/models"
	"github.com/socialflowhq/socialflow-api/internal/platform"
	"github.com/socialflowhq/socialflow-api/internal/repository"
	"github.com/socialflowhq/socialflow-api/internal/transfer"
	"github.com/socialflowhq/socialflow-api/internal/vault"
	"github.com/socialflowhq/socialflow-api/pkg/utils"
)

const (
	FACEBOOK_AUTH_URL = "https://www.facebook.com/v18.0/dialog/oauth"
	LINKEDIN_AUTH_URL = "https://www.linkedin.com/oauth/v2/authorization"

	facebookScopes  = "pages_manage_posts,pages_read_engagement,pages_show_list"
	instagramScopes = "instagram_basic,instagram_content_publish,pages_show_list"
	linkedinScopes  = "w_member_social,r_liteprofile,w_organization_social"
)

// ConnectService runs the OAuth authorization-code exchange per platform
// and normalizes provider identities into SocialAccount rows.
type ConnectService interface {
	GetAuthURL(ctx context.Context, p platform.Platform, orgID, userID int64, externalAccountID string) (string, error)
	CompleteConnection(ctx context.Context, code, state string) ([]*models.SocialAccount, platform.Platform, error)
	List(ctx context.Context, orgID int64) ([]*models.SocialAccount, error)
	Disconnect(ctx context.Context, orgID, accountID, actorID int64) error
}

type connectService struct {
	cfg    config.Config
	db     *sql.DB
	sa     repository.SocialAccountRepository
	audit  AuditService
	vault  *vault.Vault
	client *http.Client

	// overridable in tests
	fbEndpoint  oauth2.Endpoint
	liEndpoint  oauth2.Endpoint
	graphURL    string
	linkedinURL string
}

func NewConnectService(cfg config.Config, db *sql.DB, sa repository.SocialAccountRepository, audit AuditService, v *vault.Vault) ConnectService {
	return &connectService{
		cfg:         cfg,
		db:          db,
		sa:          sa,
		audit:       audit,
		vault:       v,
		client:      &http.Client{Timeout: cfg.Dispatcher.RequestTimeout},
		fbEndpoint:  facebook.Endpoint,
		liEndpoint:  linkedin.Endpoint,
		graphURL:    "https://graph.facebook.com/v18.0",
		linkedinURL: "https://api.linkedin.com",
	}
}

func (s *connectService) GetAuthURL(ctx context.Context, p platform.Platform, orgID, userID int64, externalAccountID string) (string, error) {
	state, err := utils.GenerateStateToken(s.cfg.StateSecret, transfer.StateClaims{
		Platform:          p.String(),
		OrganizationID:    orgID,
		UserID:            userID,
		ExternalAccountID: externalAccountID,
	})
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("error signing state: %w", err)
	}

	switch p {
	case platform.Facebook, platform.Instagram:
		scope := facebookScopes
		if p == platform.Instagram {
			// Instagram rides the Facebook OAuth app; accounts are
			// discovered via pages with a linked business account.
			scope = instagramScopes
		}
		params := url.Values{}
		params.Add("client_id", s.cfg.FacebookAppID)
		params.Add("redirect_uri", s.cfg.FacebookRedirectURI)
		params.Add("scope", scope)
		params.Add("response_type", "code")
		params.Add("state", state)
		return fmt.Sprintf("%s?%s", FACEBOOK_AUTH_URL, params.Encode()), nil

	case platform.Linkedin:
		params := url.Values{}
		params.Add("client_id", s.cfg.LinkedinClientID)
		params.Add("redirect_uri", s.cfg.LinkedinRedirectURI)
		params.Add("scope", linkedinScopes)
		params.Add("response_type", "code")
		params.Add("state", state)
		return fmt.Sprintf("%s?%s", LINKEDIN_AUTH_URL, params.Encode()), nil
	}

	return "", fmt.Errorf("unsupported platform: %s", p)
}

// CompleteConnection verifies the state, exchanges the code, fetches the
// provider identity, and upserts the resulting accounts in one
// transaction. Either every discovered account lands with encrypted
// tokens, or nothing is persisted.
func (s *connectService) CompleteConnection(ctx context.Context, code, state string) ([]*models.SocialAccount, platform.Platform, error) {
	claims, err := utils.ValidateStateToken(s.cfg.StateSecret, state)
	if err != nil {
		slog.Info(err.Error())
		return nil, "", &InvalidStateError{Reason: err.Error()}
	}

	p, err := platform.Parse(claims.Platform)
	if err != nil {
		return nil, "", &InvalidStateError{Reason: err.Error()}
	}

	var accounts []*models.SocialAccount
	switch p {
	case platform.Facebook:
		accounts, err = s.connectFacebook(ctx, code, claims)
	case platform.Instagram:
		accounts, err = s.connectInstagram(ctx, code, claims)
	case platform.Linkedin:
		accounts, err = s.connectLinkedin(ctx, code, claims)
	}
	if err != nil {
		return nil, p, err
	}

	if err := s.persistAccounts(ctx, accounts); err != nil {
		return nil, p, err
	}

	for _, acc := range accounts {
		s.audit.Record(ctx, acc.OrganizationID, claims.UserID, models.AuditAccountConnected,
			"social_account", acc.ID, fmt.Sprintf("%s %s", acc.Platform, acc.DisplayName))
	}

	return accounts, p, nil
}

func (s *connectService) facebookConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.FacebookAppID,
		ClientSecret: s.cfg.FacebookAppSecret,
		RedirectURL:  s.cfg.FacebookRedirectURI,
		Endpoint:     s.fbEndpoint,
	}
}

func (s *connectService) connectFacebook(ctx context.Context, code string, claims *transfer.StateClaims) ([]*models.SocialAccount, error) {
	token, err := s.facebookConfig().Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, &OAuthExchangeError{Platform: platform.Facebook, Reason: err.Error()}
	}

	pages, err := s.fetchPages(ctx, platform.Facebook, token.AccessToken, "id,name,access_token,picture")
	if err != nil {
		return nil, err
	}

	var accounts []*models.SocialAccount
	for _, page := range pages {
		encryptedToken, err := s.vault.Encrypt(page.AccessToken)
		if err != nil {
			return nil, err
		}

		// Page tokens obtained through a long-lived user token do not
		// expire; leave token_expires_at unset.
		accounts = append(accounts, &models.SocialAccount{
			OrganizationID:    claims.OrganizationID,
			Platform:          platform.Facebook,
			ExternalAccountID: page.ID,
			DisplayName:       page.Name,
			AvatarURL:         page.Picture.Data.URL,
			AccessToken:       encryptedToken,
			Scopes:            strings.Split(facebookScopes, ","),
		})
	}

	if len(accounts) == 0 {
		return nil, &ProfileFetchError{Platform: platform.Facebook, Reason: "no managed pages found"}
	}
	return accounts, nil
}

func (s *connectService) connectInstagram(ctx context.Context, code string, claims *transfer.StateClaims) ([]*models.SocialAccount, error) {
	token, err := s.facebookConfig().Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, &OAuthExchangeError{Platform: platform.Instagram, Reason: err.Error()}
	}

	pages, err := s.fetchPages(ctx, platform.Instagram, token.AccessToken, "instagram_business_account")
	if err != nil {
		return nil, err
	}

	var expiresAt *time.Time
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		expiresAt = &expiry
	}

	encryptedToken, err := s.vault.Encrypt(token.AccessToken)
	if err != nil {
		return nil, err
	}

	var accounts []*models.SocialAccount
	for _, page := range pages {
		if page.InstagramBusinessAccount == nil {
			continue
		}

		profile, err := s.fetchInstagramProfile(ctx, token.AccessToken, page.InstagramBusinessAccount.ID)
		if err != nil {
			return nil, err
		}

		displayName := profile.Name
		if displayName == "" {
			displayName = profile.Username
		}

		accounts = append(accounts, &models.SocialAccount{
			OrganizationID:    claims.OrganizationID,
			Platform:          platform.Instagram,
			ExternalAccountID: profile.ID,
			DisplayName:       displayName,
			Username:          profile.Username,
			AvatarURL:         profile.ProfilePicture,
			AccessToken:       encryptedToken,
			TokenExpiresAt:    expiresAt,
			Scopes:            strings.Split(instagramScopes, ","),
		})
	}

	if len(accounts) == 0 {
		return nil, &ProfileFetchError{Platform: platform.Instagram, Reason: "no pages with a linked instagram business account"}
	}
	return accounts, nil
}

func (s *connectService) connectLinkedin(ctx context.Context, code string, claims *transfer.StateClaims) ([]*models.SocialAccount, error) {
	conf := &oauth2.Config{
		ClientID:     s.cfg.LinkedinClientID,
		ClientSecret: s.cfg.LinkedinClientSecret,
		RedirectURL:  s.cfg.LinkedinRedirectURI,
		Endpoint:     s.liEndpoint,
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, &OAuthExchangeError{Platform: platform.Linkedin, Reason: err.Error()}
	}

	profile, err := s.fetchLinkedinProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	encryptedAccessToken, err := s.vault.Encrypt(token.AccessToken)
	if err != nil {
		return nil, err
	}

	// LinkedIn is the only provider here guaranteed to hand out a
	// refresh token.
	var encryptedRefreshToken string
	if token.RefreshToken != "" {
		encryptedRefreshToken, err = s.vault.Encrypt(token.RefreshToken)
		if err != nil {
			return nil, err
		}
	}

	var expiresAt *time.Time
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		expiresAt = &expiry
	}

	return []*models.SocialAccount{{
		OrganizationID:    claims.OrganizationID,
		Platform:          platform.Linkedin,
		ExternalAccountID: profile.ID,
		DisplayName:       strings.TrimSpace(profile.LocalizedFirstName + " " + profile.LocalizedLastName),
		AccessToken:       encryptedAccessToken,
		RefreshToken:      encryptedRefreshToken,
		TokenExpiresAt:    expiresAt,
		Scopes:            strings.Split(linkedinScopes, ","),
	}}, nil
}

// fetchPages lists the user's managed pages. Errors are tagged with the
// platform being connected, which is Instagram when pages are only the
// route to a linked business account.
func (s *connectService) fetchPages(ctx context.Context, p platform.Platform, accessToken, fields string) ([]transfer.FacebookPage, error) {
	reqURL := fmt.Sprintf("%s/me/accounts?fields=%s&access_token=%s", s.graphURL, url.QueryEscape(fields), url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, &ProfileFetchError{Platform: p, Reason: err.Error()}
	}
	defer resp.Body.Close()

	var pages transfer.FacebookPagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&pages); err != nil {
		slog.Info(err.Error())
		return nil, &ProfileFetchError{Platform: p, Reason: "malformed pages response"}
	}
	if pages.Error != nil {
		return nil, &ProfileFetchError{Platform: p, Reason: pages.Error.Message}
	}

	return pages.Data, nil
}

func (s *connectService) fetchInstagramProfile(ctx context.Context, accessToken, igAccountID string) (*transfer.InstagramBusinessProfile, error) {
	reqURL := fmt.Sprintf("%s/%s?fields=id,username,name,profile_picture_url&access_token=%s",
		s.graphURL, igAccountID, url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, &ProfileFetchError{Platform: platform.Instagram, Reason: err.Error()}
	}
	defer resp.Body.Close()

	var profile transfer.InstagramBusinessProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		slog.Info(err.Error())
		return nil, &ProfileFetchError{Platform: platform.Instagram, Reason: "malformed profile response"}
	}
	if profile.Error != nil {
		return nil, &ProfileFetchError{Platform: platform.Instagram, Reason: profile.Error.Message}
	}

	return &profile, nil
}

func (s *connectService) fetchLinkedinProfile(ctx context.Context, accessToken string) (*transfer.LinkedinProfile, error) {
	reqURL := s.linkedinURL + "/v2/me?projection=(id,localizedFirstName,localizedLastName,profilePicture(displayImage~:playableStreams))"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, &ProfileFetchError{Platform: platform.Linkedin, Reason: err.Error()}
	}
	defer resp.Body.Close()

	var profile transfer.LinkedinProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		slog.Info(err.Error())
		return nil, &ProfileFetchError{Platform: platform.Linkedin, Reason: "malformed profile response"}
	}
	if resp.StatusCode != http.StatusOK || profile.ID == "" {
		reason := profile.Message
		if reason == "" {
			reason = fmt.Sprintf("unexpected status code %d", resp.StatusCode)
		}
		return nil, &ProfileFetchError{Platform: platform.Linkedin, Reason: reason}
	}

	return &profile, nil
}

func (s *connectService) persistAccounts(ctx context.Context, accounts []*models.SocialAccount) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	for _, acc := range accounts {
		id, err := s.sa.Upsert(ctx, tx, acc)
		if err != nil {
			return fmt.Errorf("error storing account %s/%s: %w", acc.Platform, acc.ExternalAccountID, err)
		}
		acc.ID = id
	}

	return tx.Commit()
}

func (s *connectService) List(ctx context.Context, orgID int64) ([]*models.SocialAccount, error) {
	accounts, err := s.sa.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("error getting social accounts: %w", err)
	}
	return accounts, nil
}

// Disconnect soft-deletes the account. Job history referencing it stays.
func (s *connectService) Disconnect(ctx context.Context, orgID, accountID, actorID int64) error {
	isValid, err := s.sa.CheckByOrganization(ctx, accountID, orgID)
	if err != nil {
		return err
	}
	if !isValid {
		return fmt.Errorf("social account doesn't exist")
	}

	if err := s.sa.Deactivate(ctx, accountID); err != nil {
		return fmt.Errorf("error disconnecting account: %w", err)
	}

	s.audit.Record(ctx, orgID, actorID, models.AuditAccountDisconnected, "social_account", accountID, "")
	return nil
}
