// Package authware provides the request-side access gate: it extracts a
// bearer token from the configured lookups, resolves it to an account, runs
// the guard chain in order, and stores the resolved account for handlers.
package authware

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup       = "header:" + router.HeaderAuthorization
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
)

// Account mirrors the resolved user surface the guards need, declared here
// to avoid an import cycle with the root package.
type Account interface {
	Identifier() string
	IsActive() bool
	IsSuperuser() bool
}

// AccountResolver resolves a raw token into an account.
type AccountResolver interface {
	Resolve(ctx context.Context, tokenString string) (Account, error)
}

// Guard is one ordered access-control layer over a resolved account.
type Guard func(Account) error

// ValidationListener is invoked after resolution succeeds but before guards run.
type ValidationListener func(ctx router.Context, account Account) error

type Config struct {
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	ContextKey     string
	TokenLookup    string
	AuthScheme     string

	// Resolver is required; it turns the raw token into an account.
	Resolver AccountResolver

	// Guards run in order after resolution; the first denial wins.
	Guards []Guard

	// ContextEnricher propagates the account to the standard Go context so
	// non-router collaborators can read it.
	ContextEnricher func(c context.Context, account Account) context.Context

	ValidationListeners []ValidationListener
}

func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw, err := ExtractRawTokenFromContext(ctx, cfg.getExtractors())
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			account, err := cfg.Resolver.Resolve(ctx.Context(), raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if err := cfg.runValidationListeners(ctx, account); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			for _, guard := range cfg.Guards {
				if guard == nil {
					continue
				}
				if err := guard(account); err != nil {
					return cfg.ErrorHandler(ctx, err)
				}
			}

			ctx.Locals(cfg.ContextKey, account)

			if cfg.ContextEnricher != nil {
				stdCtx := ctx.Context()
				ctx.SetContext(cfg.ContextEnricher(stdCtx, account))
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

func ExtractRawTokenFromContext(ctx router.Context, extractors []TokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			if err.Error() == ErrJWTMissingOrMalformed.Error() {
				return c.Status(router.StatusBadRequest).SendString(ErrJWTMissingOrMalformed.Error())
			}
			return c.Status(router.StatusUnauthorized).SendString("Invalid or expired token")
		}
	}

	if cfg.Resolver == nil {
		panic("AUTHWARE: middleware configuration: Resolver is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "current_user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) getExtractors() []TokenExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(ctx router.Context, account Account) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(ctx, account); err != nil {
			return err
		}
	}
	return nil
}

// GetExtractors parses a lookup expression such as
// "header:X-Auth,cookie:access_token,query:auth_token" into extractors tried
// in order.
func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) < 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

type TokenExtractor func(c router.Context) (string, error)

// tokenFromHeader returns a function that extracts the token from the
// request header. The bare header value is accepted when no scheme prefix is
// present, which covers key-style headers such as X-Auth.
func tokenFromHeader(header string, authScheme string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		if a == "" {
			return "", ErrJWTMissingOrMalformed
		}
		l := len(authScheme)
		if l > 0 && len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		if strings.ContainsRune(a, ' ') {
			return "", ErrJWTMissingOrMalformed
		}
		return a, nil
	}
}

// tokenFromQuery returns a function that extracts the token from the query string.
func tokenFromQuery(param string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// tokenFromCookie returns a function that extracts the token from the named cookie.
func tokenFromCookie(name string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
