package service

import (
	"fmt"

	"github.com/socialflowhq/socialflow-api/internal/platform"
)

// InvalidStateError means the OAuth state token failed verification:
// tampered signature, expired, or not ours.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid oauth state: %s", e.Reason)
}

// OAuthExchangeError means the provider rejected the authorization code.
type OAuthExchangeError struct {
	Platform platform.Platform
	Reason   string
}

func (e *OAuthExchangeError) Error() string {
	return fmt.Sprintf("%s code exchange failed: %s", e.Platform, e.Reason)
}

// ProfileFetchError means the token was issued but the identity lookup
// behind it failed.
type ProfileFetchError struct {
	Platform platform.Platform
	Reason   string
}

func (e *ProfileFetchError) Error() string {
	return fmt.Sprintf("%s profile fetch failed: %s", e.Platform, e.Reason)
}

// NoRefreshTokenError means a refresh was needed but no refresh token is
// stored for the account.
type NoRefreshTokenError struct {
	AccountID int64
}

func (e *NoRefreshTokenError) Error() string {
	return fmt.Sprintf("no refresh token stored for account %d", e.AccountID)
}

// TokenRefreshError is terminal: the account has been deactivated and only
// a human reconnect will fix it. The dispatcher must fail the job outright
// instead of burning retry attempts on it.
type TokenRefreshError struct {
	AccountID int64
	Reason    string
}

func (e *TokenRefreshError) Error() string {
	return fmt.Sprintf("token refresh failed for account %d: %s", e.AccountID, e.Reason)
}
