package users

import (
	"fmt"
	"log"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/goliatone/go-errors"
	"github.com/golang-jwt/jwt/v5"
)

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, ErrUnableToDecodeSession
	}
	return f(tokenString)
}

// MultiTokenValidator tries validators in order until one succeeds.
// It treats ErrTokenMalformed as "try next" and returns the last malformed
// error if all validators fail.
type MultiTokenValidator struct {
	validators []TokenValidator
}

// NewMultiTokenValidator filters nil validators and returns a composite validator.
func NewMultiTokenValidator(validators ...TokenValidator) *MultiTokenValidator {
	filtered := make([]TokenValidator, 0, len(validators))
	for _, v := range validators {
		if v != nil {
			filtered = append(filtered, v)
		}
	}
	return &MultiTokenValidator{validators: filtered}
}

// Validate satisfies the TokenValidator interface.
func (m *MultiTokenValidator) Validate(tokenString string) (AuthClaims, error) {
	var lastErr error
	for _, v := range m.validators {
		claims, err := v.Validate(tokenString)
		if err == nil {
			return claims, nil
		}
		if IsMalformedError(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrTokenMalformed
}

// JWKSValidator validates tokens signed by an external identity provider
// whose public keys are published as a JWK Set. Pair it with the local
// TokenService through a MultiTokenValidator to accept both token sources.
type JWKSValidator struct {
	jwks   *keyfunc.JWKS
	issuer string
}

// NewJWKSValidator fetches the JWK Set from the given URL and keeps it
// refreshed in the background.
func NewJWKSValidator(jwksURL string, issuer string) (*JWKSValidator, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWT set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get JWK Set from %s: %w", jwksURL, err)
	}
	return &JWKSValidator{jwks: jwks, issuer: issuer}, nil
}

// Validate satisfies the TokenValidator interface.
func (v *JWKSValidator) Validate(tokenString string) (AuthClaims, error) {
	claims := &TokenClaims{}

	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, errors.CategoryAuth, "authentication token is malformed").
			WithTextCode(TextCodeTokenMalformed).
			WithCode(errors.CodeUnauthorized)
	}

	if !token.Valid || claims.RegisteredClaims.Subject == "" {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// Shutdown stops the background JWK Set refresh goroutine.
func (v *JWKSValidator) Shutdown() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

var _ TokenValidator = (*JWKSValidator)(nil)
var _ TokenValidator = (*MultiTokenValidator)(nil)
