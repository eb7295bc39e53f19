package users

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService issues and validates signed session tokens. Verification is
// stateless: there is no server-side session store and no revocation list, so
// a captured token stays cryptographically valid until its exp claim passes.
type TokenService interface {
	Issue(subject string) (string, error)
	IssueWithTTL(subject string, ttl time.Duration) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidator validates tokens and extracts claims without tying callers
// to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenServiceImpl implements TokenService with an HMAC secret shared by the
// whole process. The key is read-only after construction.
type TokenServiceImpl struct {
	signingKey      []byte
	tokenExpiration int // minutes
	issuer          string
	audience        jwt.ClaimStrings
	logger          Logger
}

// NewTokenService creates a new TokenService instance. tokenExpiration is the
// default TTL in minutes applied by Issue.
func NewTokenService(signingKey []byte, tokenExpiration int, issuer string, audience jwt.ClaimStrings, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey:      signingKey,
		tokenExpiration: tokenExpiration,
		issuer:          issuer,
		audience:        audience,
		logger:          logger,
	}
}

// Issue creates a token for subject using the configured default TTL.
func (ts *TokenServiceImpl) Issue(subject string) (string, error) {
	return ts.IssueWithTTL(subject, time.Duration(ts.tokenExpiration)*time.Minute)
}

// IssueWithTTL creates a token whose claim window is [now, now+ttl).
func (ts *TokenServiceImpl) IssueWithTTL(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", goerrors.New("token subject must not be empty", goerrors.CategoryBadInput)
	}
	if ttl <= 0 {
		return "", goerrors.New("token TTL must be positive", goerrors.CategoryBadInput)
	}

	now := time.Now()
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subject,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *TokenClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims.
// Expired tokens map to ErrTokenExpired; every other parse or signature
// failure maps to ErrTokenMalformed so callers see a single invalid shape.
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 3)
	parserOptions = append(parserOptions, jwt.WithExpirationRequired())
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid || claims.RegisteredClaims.Subject == "" {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

var _ TokenService = (*TokenServiceImpl)(nil)
var _ TokenValidator = (*TokenServiceImpl)(nil)

func newTokenID() string {
	return uuid.NewString()
}
