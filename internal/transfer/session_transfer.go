package transfer

import "github.com/golang-jwt/jwt/v5"

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// StateClaims is the payload of the signed OAuth state token. It binds an
// authorization request to the callback that completes it.
type StateClaims struct {
	Platform          string `json:"platform"`
	OrganizationID    int64  `json:"organization_id"`
	UserID            int64  `json:"user_id"`
	ExternalAccountID string `json:"external_account_id,omitempty"`
	jwt.RegisteredClaims
}
