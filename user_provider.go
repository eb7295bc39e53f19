package users

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// UserStore is the minimal lookup surface the credential verifier needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*User, error)
}

// UserProvider verifies submitted credentials against stored hashes. It owns
// no state beyond its store handle.
type UserProvider struct {
	store  UserStore
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserStore) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyIdentity finds the user and compares the password to the stored
// hash. Unknown emails and wrong passwords both fail with
// ErrInvalidCredentials so callers cannot tell the cases apart.
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (*User, error) {
	user, err := u.store.GetByEmail(ctx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// FindIdentityByIdentifier looks up an account without verifying credentials.
func (u *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (*User, error) {
	user, err := u.store.GetByEmail(ctx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user")
	}

	if user == nil {
		return nil, ErrIdentityNotFound
	}

	return user, nil
}

var _ IdentityProvider = (*UserProvider)(nil)
