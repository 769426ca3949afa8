package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/socialflowhq/socialflow-api/internal/transfer"
)

// StateTTL bounds how long an OAuth authorization round-trip may take.
const StateTTL = 10 * time.Minute

// GenerateStateToken signs an OAuth state binding the authorization
// request to the organization and user that initiated it.
func GenerateStateToken(secret string, claims transfer.StateClaims) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(StateTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    "socialflow",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateStateToken verifies the signature and expiry of a state token.
// Any failure, tampering, expiry or a foreign signing method, is an error.
func ValidateStateToken(secret, tokenString string) (*transfer.StateClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &transfer.StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid state signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*transfer.StateClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid state token")
	}

	return claims, nil
}
