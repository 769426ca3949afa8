package service

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	config "github.com/socialflowhq/socialflow-api/configs"
	"github.com/socialflowhq/socialflow-api/internal/models"
	"github.com/socialflowhq/socialflow-api/internal/platform"
	"github.com/socialflowhq/socialflow-api/internal/transfer"
	"github.com/socialflowhq/socialflow-api/pkg/utils"
)

func newTestConnect(t *testing.T, sa *fakeAccountRepo, audit *fakeAudit) *connectService {
	t.Helper()
	cfg := config.Config{
		FacebookAppID:        "fb-app",
		FacebookAppSecret:    "fb-secret",
		FacebookRedirectURI:  "https://api.example.com/auth/facebook/callback",
		LinkedinClientID:     "li-client",
		LinkedinClientSecret: "li-secret",
		LinkedinRedirectURI:  "https://api.example.com/auth/linkedin/callback",
		StateSecret:          "state-secret",
		Dispatcher: config.Dispatcher{
			RequestTimeout: 5 * time.Second,
		},
	}
	return &connectService{
		cfg:         cfg,
		sa:          sa,
		audit:       audit,
		vault:       testVault(t),
		client:      &http.Client{Timeout: 5 * time.Second},
		fbEndpoint:  oauth2.Endpoint{},
		liEndpoint:  oauth2.Endpoint{},
		graphURL:    "http://unused",
		linkedinURL: "http://unused",
	}
}

func TestGetAuthURLFacebook(t *testing.T) {
	s := newTestConnect(t, newFakeAccountRepo(), &fakeAudit{})

	raw, err := s.GetAuthURL(context.Background(), platform.Facebook, 42, 7, "")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, FACEBOOK_AUTH_URL))

	q := u.Query()
	assert.Equal(t, "fb-app", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Contains(t, q.Get("scope"), "pages_manage_posts")

	claims, err := utils.ValidateStateToken("state-secret", q.Get("state"))
	require.NoError(t, err)
	assert.Equal(t, "facebook", claims.Platform)
	assert.Equal(t, int64(42), claims.OrganizationID)
	assert.Equal(t, int64(7), claims.UserID)
}

func TestGetAuthURLLinkedin(t *testing.T) {
	s := newTestConnect(t, newFakeAccountRepo(), &fakeAudit{})

	raw, err := s.GetAuthURL(context.Background(), platform.Linkedin, 42, 7, "")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, LINKEDIN_AUTH_URL))
	assert.Contains(t, u.Query().Get("scope"), "w_member_social")

	claims, err := utils.ValidateStateToken("state-secret", u.Query().Get("state"))
	require.NoError(t, err)
	assert.Equal(t, "linkedin", claims.Platform)
}

func TestCompleteConnectionRejectsTamperedState(t *testing.T) {
	sa := newFakeAccountRepo()
	sa.upsertFn = func(ctx context.Context, tx *sql.Tx, account *models.SocialAccount) (int64, error) {
		t.Fatal("no account must be stored on a tampered state")
		return 0, nil
	}
	s := newTestConnect(t, sa, &fakeAudit{})

	state, err := utils.GenerateStateToken("state-secret", transfer.StateClaims{
		Platform:       "facebook",
		OrganizationID: 42,
		UserID:         7,
	})
	require.NoError(t, err)

	tampered := state[:len(state)-2] + "xx"

	_, _, err = s.CompleteConnection(context.Background(), "code", tampered)
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
}

func TestCompleteConnectionRejectsForeignSecret(t *testing.T) {
	s := newTestConnect(t, newFakeAccountRepo(), &fakeAudit{})

	state, err := utils.GenerateStateToken("attacker-secret", transfer.StateClaims{
		Platform:       "facebook",
		OrganizationID: 42,
		UserID:         7,
	})
	require.NoError(t, err)

	_, _, err = s.CompleteConnection(context.Background(), "code", state)
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
}

func TestCompleteConnectionRejectsUnknownPlatform(t *testing.T) {
	s := newTestConnect(t, newFakeAccountRepo(), &fakeAudit{})

	state, err := utils.GenerateStateToken("state-secret", transfer.StateClaims{
		Platform:       "myspace",
		OrganizationID: 42,
		UserID:         7,
	})
	require.NoError(t, err)

	_, _, err = s.CompleteConnection(context.Background(), "code", state)
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
}

func TestFetchPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/accounts", r.URL.Path)
		w.Write([]byte(`{"data":[
			{"id":"p1","name":"Page One","access_token":"pt1","picture":{"data":{"url":"https://img/p1"}}},
			{"id":"p2","name":"Page Two","access_token":"pt2","instagram_business_account":{"id":"ig9"}}
		]}`))
	}))
	defer srv.Close()

	s := newTestConnect(t, newFakeAccountRepo(), &fakeAudit{})
	s.graphURL = srv.URL

	pages, err := s.fetchPages(context.Background(), platform.Facebook, "user-token", "id,name,access_token")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "Page One", pages[0].Name)
	assert.Equal(t, "https://img/p1", pages[0].Picture.Data.URL)
	require.NotNil(t, pages[1].InstagramBusinessAccount)
	assert.Equal(t, "ig9", pages[1].InstagramBusinessAccount.ID)
}

func TestFetchPagesGraphError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	defer srv.Close()

	s := newTestConnect(t, newFakeAccountRepo(), &fakeAudit{})
	s.graphURL = srv.URL

	_, err := s.fetchPages(context.Background(), platform.Facebook, "bad-token", "id")
	var fetchErr *ProfileFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Reason, "Invalid OAuth access token")
}

// A failed page lookup during an Instagram connect is an Instagram
// error, tagged once, not a Facebook error wrapped in another one.
func TestFetchPagesTaggedByConnectingPlatform(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	defer srv.Close()

	s := newTestConnect(t, newFakeAccountRepo(), &fakeAudit{})
	s.graphURL = srv.URL

	_, err := s.fetchPages(context.Background(), platform.Instagram, "bad-token", "instagram_business_account")
	var fetchErr *ProfileFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, platform.Instagram, fetchErr.Platform)
	assert.Equal(t, 1, strings.Count(err.Error(), "profile fetch failed"))
}

func TestFetchLinkedinProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/me", r.URL.Path)
		assert.Equal(t, "Bearer li-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"abc123","localizedFirstName":"Ada","localizedLastName":"Lovelace"}`))
	}))
	defer srv.Close()

	s := newTestConnect(t, newFakeAccountRepo(), &fakeAudit{})
	s.linkedinURL = srv.URL

	profile, err := s.fetchLinkedinProfile(context.Background(), "li-token")
	require.NoError(t, err)
	assert.Equal(t, "abc123", profile.ID)
	assert.Equal(t, "Ada", profile.LocalizedFirstName)
}

func TestFetchLinkedinProfileUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid access token","status":401}`))
	}))
	defer srv.Close()

	s := newTestConnect(t, newFakeAccountRepo(), &fakeAudit{})
	s.linkedinURL = srv.URL

	_, err := s.fetchLinkedinProfile(context.Background(), "bad")
	var fetchErr *ProfileFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Reason, "Invalid access token")
}
