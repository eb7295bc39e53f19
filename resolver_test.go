package users_test

import (
	"context"
	"testing"
	"time"

	users "github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverResolve(t *testing.T) {
	user := activeUser(t, "a@x.com", "secret123")
	svc := newTestTokenService()
	resolver := users.NewCurrentUserResolver(svc, users.NewUserProvider(newMemoryStore(user)))

	token, err := svc.Issue("a@x.com")
	require.NoError(t, err)

	got, err := resolver.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
}

func TestResolverResolveExpiredToken(t *testing.T) {
	user := activeUser(t, "a@x.com", "secret123")
	svc := newTestTokenService()
	resolver := users.NewCurrentUserResolver(svc, users.NewUserProvider(newMemoryStore(user)))

	token, err := svc.IssueWithTTL("a@x.com", time.Millisecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = resolver.Resolve(context.Background(), token)
	require.Error(t, err)
	assert.True(t, users.IsTokenExpiredError(err))
}

func TestResolverResolveMalformedToken(t *testing.T) {
	user := activeUser(t, "a@x.com", "secret123")
	svc := newTestTokenService()
	resolver := users.NewCurrentUserResolver(svc, users.NewUserProvider(newMemoryStore(user)))

	_, err := resolver.Resolve(context.Background(), "garbage")
	require.Error(t, err)
	assert.True(t, users.IsMalformedError(err))
}

func TestResolverResolveMissingSubject(t *testing.T) {
	// the token is valid but the account was removed after issuance
	svc := newTestTokenService()
	resolver := users.NewCurrentUserResolver(svc, users.NewUserProvider(newMemoryStore()))

	token, err := svc.Issue("ghost@x.com")
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, users.ErrIdentityNotFound)
}

// Resolution itself never checks activeness; the gate does. An inactive
// account still resolves and is then refused by GuardActive.
func TestResolverResolveInactiveStillResolves(t *testing.T) {
	user := activeUser(t, "a@x.com", "secret123")
	user.Active = false

	svc := newTestTokenService()
	resolver := users.NewCurrentUserResolver(svc, users.NewUserProvider(newMemoryStore(user)))

	token, err := svc.Issue("a@x.com")
	require.NoError(t, err)

	got, err := resolver.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.ErrorIs(t, users.GuardActive(got), users.ErrInactiveAccount)
}
