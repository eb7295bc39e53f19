package users

import (
	"context"
)

// CurrentUserResolver turns a raw bearer token into the user it asserts.
// Every resolution re-verifies the token and re-queries the store; there is
// no cache, which keeps the core stateless at the cost of a lookup per
// request.
type CurrentUserResolver struct {
	tokens   TokenValidator
	provider IdentityProvider
	logger   Logger
}

// NewCurrentUserResolver wires a token validator and an identity provider.
func NewCurrentUserResolver(tokens TokenValidator, provider IdentityProvider) *CurrentUserResolver {
	return &CurrentUserResolver{
		tokens:   tokens,
		provider: provider,
		logger:   defLogger{},
	}
}

func (r *CurrentUserResolver) WithLogger(l Logger) *CurrentUserResolver {
	if l != nil {
		r.logger = l
	}
	return r
}

// Resolve validates the token, then looks up the subject. Token failures
// (expired, malformed) propagate as-is; the boundary collapses them into one
// unauthorized response so callers cannot probe which failure occurred.
// A valid token whose subject no longer exists yields ErrIdentityNotFound.
func (r *CurrentUserResolver) Resolve(ctx context.Context, tokenString string) (*User, error) {
	claims, err := r.tokens.Validate(tokenString)
	if err != nil {
		r.logger.Debug("token validation failed", "error", err)
		return nil, err
	}

	user, err := r.provider.FindIdentityByIdentifier(ctx, claims.Subject())
	if err != nil {
		r.logger.Debug("subject lookup failed", "subject", claims.Subject(), "error", err)
		return nil, err
	}

	return user, nil
}

var _ UserResolver = (*CurrentUserResolver)(nil)
