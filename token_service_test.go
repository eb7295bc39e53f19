package users_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	users "github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSigningKey = []byte("test-signing-key")
	testIssuer     = "users-test"
	testAudience   = jwt.ClaimStrings{"users-test"}
)

func newTestTokenService() *users.TokenServiceImpl {
	return users.NewTokenService(testSigningKey, 60, testIssuer, testAudience, nil)
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	svc := newTestTokenService()

	token, err := svc.Issue("a@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", claims.Subject())
	assert.WithinDuration(t, time.Now(), claims.IssuedAt(), 5*time.Second)
	assert.WithinDuration(t, time.Now().Add(60*time.Minute), claims.Expires(), 5*time.Second)
}

func TestTokenService_IssueRejectsEmptySubject(t *testing.T) {
	svc := newTestTokenService()

	_, err := svc.Issue("")
	assert.Error(t, err)
}

func TestTokenService_IssueWithTTLRejectsNonPositive(t *testing.T) {
	svc := newTestTokenService()

	_, err := svc.IssueWithTTL("a@x.com", 0)
	assert.Error(t, err)

	_, err = svc.IssueWithTTL("a@x.com", -time.Minute)
	assert.Error(t, err)
}

func expiredToken(t *testing.T, svc *users.TokenServiceImpl) string {
	t.Helper()

	claims := &users.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   "a@x.com",
			Audience:  testAudience,
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}

	token, err := svc.SignClaims(claims)
	require.NoError(t, err)
	return token
}

func TestTokenService_ValidateExpired(t *testing.T) {
	svc := newTestTokenService()

	_, err := svc.Validate(expiredToken(t, svc))
	require.Error(t, err)

	assert.True(t, users.IsTokenExpiredError(err))
	assert.False(t, users.IsMalformedError(err))

	var richErr *goerrors.Error
	require.ErrorAs(t, err, &richErr)
	assert.Equal(t, goerrors.CategoryAuth, richErr.Category)
	assert.Equal(t, users.TextCodeTokenExpired, richErr.TextCode)
}

func TestTokenService_ValidateTampered(t *testing.T) {
	svc := newTestTokenService()

	token, err := svc.Issue("a@x.com")
	require.NoError(t, err)

	tampered := token[:len(token)-4] + "XXXX"

	_, err = svc.Validate(tampered)
	require.Error(t, err)
	assert.True(t, users.IsMalformedError(err))
}

func TestTokenService_ValidateGarbage(t *testing.T) {
	svc := newTestTokenService()

	_, err := svc.Validate("not-a-token")
	require.Error(t, err)
	assert.True(t, users.IsMalformedError(err))
}

func TestTokenService_ValidateWrongKey(t *testing.T) {
	svc := newTestTokenService()
	other := users.NewTokenService([]byte("another-key"), 60, testIssuer, testAudience, nil)

	token, err := other.Issue("a@x.com")
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.Error(t, err)
	assert.True(t, users.IsMalformedError(err))
}

func TestTokenService_ValidateRejectsMissingExpiration(t *testing.T) {
	svc := newTestTokenService()

	claims := &users.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   testIssuer,
			Subject:  "a@x.com",
			Audience: testAudience,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	token, err := svc.SignClaims(claims)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestTokenService_ValidateRejectsEmptySubjectClaim(t *testing.T) {
	svc := newTestTokenService()

	claims := &users.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Audience:  testAudience,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	token, err := svc.SignClaims(claims)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}
