package users_test

import (
	"testing"

	users "github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
)

func TestGuardResolved(t *testing.T) {
	assert.ErrorIs(t, users.GuardResolved(nil), users.ErrUnableToFindSession)
	assert.NoError(t, users.GuardResolved(&users.User{Active: true}))
}

func TestGuardActive(t *testing.T) {
	assert.ErrorIs(t, users.GuardActive(nil), users.ErrUnableToFindSession)
	assert.ErrorIs(t, users.GuardActive(&users.User{Active: false}), users.ErrInactiveAccount)
	assert.NoError(t, users.GuardActive(&users.User{Active: true}))
}

func TestGuardSuperuser(t *testing.T) {
	assert.ErrorIs(t, users.GuardSuperuser(&users.User{Active: true}), users.ErrNotEnoughPrivileges)
	assert.NoError(t, users.GuardSuperuser(&users.User{Active: true, Superuser: true}))
}

func TestRunGuardsOrder(t *testing.T) {
	// a deactivated superuser is refused as inactive, not as under-privileged
	err := users.RunGuards(&users.User{Active: false, Superuser: true}, users.GateSuperuser()...)
	assert.ErrorIs(t, err, users.ErrInactiveAccount)
}

func TestRunGuardsSuperuserDenied(t *testing.T) {
	err := users.RunGuards(&users.User{Active: true, Superuser: false}, users.GateSuperuser()...)
	assert.ErrorIs(t, err, users.ErrNotEnoughPrivileges)
}

func TestRunGuardsPass(t *testing.T) {
	u := &users.User{Active: true, Superuser: true}
	assert.NoError(t, users.RunGuards(u, users.GateSuperuser()...))
	assert.NoError(t, users.RunGuards(u, users.GateActive()...))
}

func TestRunGuardsSkipsNil(t *testing.T) {
	u := &users.User{Active: true}
	assert.NoError(t, users.RunGuards(u, nil, users.GuardActive))
}
