package users

import (
	"context"
)

// Auther orchestrates credential verification and token issuance. It holds
// no mutable state; the signing key inside the token service is read-only
// after startup.
type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	logger       Logger
}

// NewAuthenticator returns a new Authenticator backed by the given identity
// provider and configuration.
func NewAuthenticator(provider IdentityProvider, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials, rejects inactive accounts, and issues a
// fresh token whose subject is the account email.
func (s *Auther) Login(ctx context.Context, identifier, password string) (*User, string, error) {
	user, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Info("login verify identity failed", "identifier", identifier)
		return nil, "", err
	}

	if !user.IsActive() {
		s.logger.Warn("login blocked for inactive account", "identifier", identifier)
		return nil, "", ErrInactiveAccount
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// IssueToken mints a session token for an already-verified user.
func (s *Auther) IssueToken(user *User) (string, error) {
	token, err := s.tokenService.Issue(user.Identifier())
	if err != nil {
		s.logger.Error("token issuance failed", "error", err)
		return "", err
	}
	return token, nil
}

var _ Authenticator = (*Auther)(nil)
