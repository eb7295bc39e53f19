package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-router"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds auth options. Implementations are built once at startup and
// never mutated; components receive the interface, not a global.
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
}

// IdentityProvider is the store we use to verify and retrieve accounts.
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (*User, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (*User, error)
}

// UserResolver resolves a raw bearer token into the user it asserts.
type UserResolver interface {
	Resolve(ctx context.Context, tokenString string) (*User, error)
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (*User, string, error)
	IssueToken(user *User) (string, error)
	TokenService() TokenService
}

// HTTPAuthenticator is the surface controllers require from the route
// authenticator.
type HTTPAuthenticator interface {
	Login(c router.Context, identifier, password string) (*User, string, error)
	IssueSession(c router.Context, user *User) (string, error)
	Logout(c router.Context)
	ProtectedRoute(guards ...Guard) router.MiddlewareFunc
	RespondError(c router.Context, err error) error
}

// Mailer delivers outbound notifications; SMTP transport lives outside the
// auth core, behind this interface.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) { fmt.Println(formatLogLine("[ERR]", msg, args)) }

func (d defLogger) Warn(msg string, args ...any) { fmt.Println(formatLogLine("[WRN]", msg, args)) }

func (d defLogger) Info(msg string, args ...any) { fmt.Println(formatLogLine("[INF]", msg, args)) }

func (d defLogger) Debug(msg string, args ...any) { fmt.Println(formatLogLine("[DBG]", msg, args)) }

// formatLogLine renders a message plus alternating key/value pairs. A
// trailing unpaired value is appended as-is.
func formatLogLine(level, msg string, args []any) string {
	var b strings.Builder
	b.WriteString(level)
	b.WriteString(" USERS ")
	b.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	if len(args)%2 != 0 {
		fmt.Fprintf(&b, " %v", args[len(args)-1])
	}
	return b.String()
}
