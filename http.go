package users

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-users/middleware/authware"
)

const sessionCookieDuration = 30 * 24 * time.Hour

// RouteAuthenticator glues the authenticator to the HTTP surface: it issues
// session cookies, clears them on logout, builds the protected-route
// middleware, and translates rich errors into JSON responses.
type RouteAuthenticator struct {
	auth           Authenticator
	cfg            Config
	resolver       UserResolver
	cookieDuration time.Duration
	Logger         Logger
	ErrorHandler   func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		cookieDuration: sessionCookieDuration,
		Logger:         defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

// WithResolver sets the resolver used by ProtectedRoute to turn bearer
// tokens into accounts.
func (a *RouteAuthenticator) WithResolver(resolver UserResolver) *RouteAuthenticator {
	a.resolver = resolver
	return a
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	a.Logger = logger
	return a
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// ProtectedRoute returns middleware that authenticates the request and runs
// the given guards in order. The resolved account is stored under the
// configured context key.
func (a *RouteAuthenticator) ProtectedRoute(guards ...Guard) router.MiddlewareFunc {
	return authware.New(authware.Config{
		ErrorHandler: a.authErrorHandler(),
		Resolver:     resolverAdapter{a.resolver},
		Guards:       adaptGuards(guards),
		ContextKey:   a.cfg.GetContextKey(),
		TokenLookup:  a.cfg.GetTokenLookup(),
		AuthScheme:   a.cfg.GetAuthScheme(),
		ContextEnricher: func(ctx context.Context, account authware.Account) context.Context {
			if user, ok := account.(*User); ok {
				return WithContext(ctx, user)
			}
			return ctx
		},
	})
}

// Login verifies the credentials and, on success, sets the session cookie.
// The resolved user and raw token are returned so controllers can shape the
// response body.
func (a *RouteAuthenticator) Login(ctx router.Context, identifier, password string) (*User, string, error) {
	user, token, err := a.auth.Login(ctx.Context(), identifier, password)
	if err != nil {
		a.Logger.Error("Login error", "error", err)
		return nil, "", err
	}

	a.setCookieToken(ctx, token, a.cookieDuration)
	return user, token, nil
}

// IssueSession mints a token for an already verified user and sets the
// session cookie. Used by signup, social sign-in, and token refresh.
func (a *RouteAuthenticator) IssueSession(ctx router.Context, user *User) (string, error) {
	token, err := a.auth.IssueToken(user)
	if err != nil {
		a.Logger.Error("Session issue error", "error", err, "identifier", user.Identifier())
		return "", err
	}

	a.setCookieToken(ctx, token, a.cookieDuration)
	return token, nil
}

// Logout clears the session cookie. Issued tokens stay valid until they
// expire; there is no server-side revocation list.
func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetContextKey())
}

// RespondError translates an error into its JSON representation, hiding
// internal detail from clients while logging it in full.
func (a *RouteAuthenticator) RespondError(ctx router.Context, err error) error {
	return a.ErrorHandler(ctx, err)
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) authErrorHandler() func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else if !errors.As(err, &richErr) {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized).
				WithTextCode(TextCodeTokenMalformed)
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Request error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	status := ErrorStatus(richErr)

	message := richErr.Message
	if status >= 500 {
		message = "An unexpected server error occurred"
	}

	body := router.ViewContext{"error": message}
	if richErr.TextCode != "" && status < 500 {
		body["code"] = richErr.TextCode
	}

	return c.JSON(status, body)
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)

// resolverAdapter bridges the root-package resolver into the middleware's
// mirrored interface.
type resolverAdapter struct {
	resolver UserResolver
}

func (r resolverAdapter) Resolve(ctx context.Context, tokenString string) (authware.Account, error) {
	user, err := r.resolver.Resolve(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func adaptGuards(guards []Guard) []authware.Guard {
	out := make([]authware.Guard, 0, len(guards))
	for _, guard := range guards {
		guard := guard
		out = append(out, func(account authware.Account) error {
			user, _ := account.(*User)
			return guard(user)
		})
	}
	return out
}
