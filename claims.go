package users

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the decoded identity claim carried by a session token.
type AuthClaims interface {
	Subject() string
	IssuedAt() time.Time
	Expires() time.Time
}

// TokenClaims is the concrete claim set embedded in issued tokens. The
// subject is the user's email; validity is bounded by iat/exp only.
type TokenClaims struct {
	jwt.RegisteredClaims
}

var _ AuthClaims = (*TokenClaims)(nil)

// Subject returns the subject claim, the user email the token asserts.
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// IssuedAt returns the issuance time, zero when the claim is absent.
func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// Expires returns the expiration time, zero when the claim is absent.
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = newTokenID()
	}
}
