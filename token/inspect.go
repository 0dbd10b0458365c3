package token

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var ErrNotJWT = errors.New("token is not a JWT")

// Claims are the unverified contents of a backend issued token.
// They are informational only: the backend remains the authority on validity.
type Claims struct {
	UserID    uint       `json:"userId,omitempty"`
	Role      string     `json:"role,omitempty"`
	IssuedAt  *time.Time `json:"issuedAt,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type backendClaims struct {
	UserID uint   `json:"userId"`
	Role   string `json:"role"`
	jwtlib.RegisteredClaims
}

// Inspect decodes the claims of raw without verifying its signature.
func Inspect(raw string) (*Claims, error) {
	if strings.Count(raw, ".") != 2 {
		return nil, ErrNotJWT
	}

	var bc backendClaims
	if _, _, err := jwtlib.NewParser().ParseUnverified(raw, &bc); err != nil {
		return nil, errors.Join(ErrNotJWT, err)
	}

	c := &Claims{UserID: bc.UserID, Role: bc.Role}
	if bc.IssuedAt != nil {
		iat := bc.IssuedAt.Time
		c.IssuedAt = &iat
	}
	if bc.ExpiresAt != nil {
		exp := bc.ExpiresAt.Time
		c.ExpiresAt = &exp
	}
	return c, nil
}

// Expired reports whether the exp claim lies before now. Tokens without exp never expire.
func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}
