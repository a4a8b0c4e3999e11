// Package guard evaluates a declarative route policy table before handlers
// run. Each request resolves to one of three states, unauthenticated,
// authenticated user, or authenticated admin, from the presence and validity
// of a session token alone; any decode error collapses to unauthenticated.
package guard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goliatone/go-router"
)

var (
	// ErrTokenMissing is returned when no extractor finds a token
	ErrTokenMissing = errors.New("missing or malformed session token")
	// ErrNotAdmin is returned when an authenticated user hits an admin route
	ErrNotAdmin = errors.New("session lacks admin role")
)

// AuthClaims mirrors the claim surface of the auth package without creating
// an import cycle.
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	Role() string
	IsAdmin() bool
	HasRole(role string) bool
	TokenID() string
	Expires() time.Time
	IssuedAt() time.Time
}

// TokenValidator validates a raw token into claims.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// ValidatorFunc adapts a bare validate function into a TokenValidator.
type ValidatorFunc func(tokenString string) (AuthClaims, error)

func (f ValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	return f(tokenString)
}

// Revoker answers whether a token ID has been revoked. Only consulted for
// admin-role claims.
type Revoker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type Config struct {
	// Rules is the ordered policy table; first matching pattern wins.
	Rules []Rule
	// DefaultPolicy applies to unmatched paths. Defaults to PolicyPublic.
	DefaultPolicy Policy

	// TokenValidator is required.
	TokenValidator TokenValidator

	// TokenLookup declares where tokens live, e.g.
	// "cookie:session,header:Authorization".
	TokenLookup string
	AuthScheme  string
	// ContextKey is the router locals key claims are stored under.
	ContextKey string

	// SignInRoute receives unauthenticated requests to protected routes.
	SignInRoute string
	// HomeRoute receives authenticated non-admins hitting admin routes. A
	// redirect home, not an error page, keeps the protected resource's
	// existence unconfirmed.
	HomeRoute string

	// RejectedRouteKey, when set, stores the rejected path in a cookie so
	// sign-in can return the caller where they came from.
	RejectedRouteKey string

	// Revoker, when set, is consulted for admin-role tokens.
	Revoker Revoker

	// ContextEnricher propagates claims into the standard context.
	ContextEnricher func(c context.Context, claims AuthClaims) context.Context

	// ErrorHandler overrides the redirect behavior entirely, mostly for
	// API surfaces that want a JSON 401 instead.
	ErrorHandler func(c router.Context, err error) error
}

// New builds the guard middleware. It panics on a nil validator or a bad
// pattern; both are programmer errors caught at wiring time.
func New(config Config) router.MiddlewareFunc {
	cfg := withDefaults(config)

	compiled, err := compileRules(cfg.Rules)
	if err != nil {
		panic("GUARD: invalid route pattern: " + err.Error())
	}

	extractors := GetExtractors(cfg.TokenLookup, cfg.AuthScheme)

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			policy := policyFor(compiled, cfg.DefaultPolicy, ctx.Path())

			claims, err := decodeSession(ctx, cfg, extractors)

			if policy == PolicyPublic {
				// public routes pass regardless; a valid session still
				// lands in locals so render paths can show role-gated UI
				if err == nil {
					storeClaims(ctx, cfg, claims)
				}
				return hf(ctx)
			}

			if err != nil {
				// fail closed: missing token, bad signature, expiry, and
				// unexpected claim shapes all collapse to unauthenticated
				return cfg.rejectUnauthenticated(ctx, err)
			}

			if policy == PolicyAdmin {
				if !claims.IsAdmin() {
					return cfg.redirectHome(ctx)
				}

				if cfg.Revoker != nil {
					revoked, err := cfg.Revoker.IsRevoked(ctx.Context(), claims.TokenID())
					if err != nil || revoked {
						return cfg.rejectUnauthenticated(ctx, ErrTokenMissing)
					}
				}
			}

			storeClaims(ctx, cfg, claims)

			return hf(ctx)
		}
	}
}

func decodeSession(ctx router.Context, cfg Config, extractors []TokenExtractor) (AuthClaims, error) {
	raw, err := ExtractRawToken(ctx, extractors)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, ErrTokenMissing
	}

	claims, err := cfg.TokenValidator.Validate(raw)
	if err != nil {
		return nil, err
	}
	if claims == nil {
		return nil, ErrTokenMissing
	}

	return claims, nil
}

func storeClaims(ctx router.Context, cfg Config, claims AuthClaims) {
	ctx.Locals(cfg.ContextKey, claims)

	if cfg.ContextEnricher != nil {
		ctx.SetContext(cfg.ContextEnricher(ctx.Context(), claims))
	}
}

func withDefaults(cfg Config) Config {
	if cfg.TokenValidator == nil {
		panic("GUARD: configuration requires a TokenValidator")
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = "cookie:session,header:" + router.HeaderAuthorization
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "session"
	}

	if cfg.SignInRoute == "" {
		cfg.SignInRoute = "/login"
	}

	if cfg.HomeRoute == "" {
		cfg.HomeRoute = "/"
	}

	return cfg
}

func (cfg Config) rejectUnauthenticated(ctx router.Context, err error) error {
	if cfg.ErrorHandler != nil {
		return cfg.ErrorHandler(ctx, err)
	}

	if cfg.RejectedRouteKey != "" {
		ctx.Cookie(&router.Cookie{
			Name:     cfg.RejectedRouteKey,
			Value:    ctx.OriginalURL(),
			Expires:  time.Now().Add(time.Minute * 5),
			HTTPOnly: true,
			Secure:   true,
			SameSite: "Lax",
		})
	}

	statusCode := http.StatusSeeOther
	if ctx.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return ctx.Redirect(cfg.SignInRoute, statusCode)
}

func (cfg Config) redirectHome(ctx router.Context) error {
	if cfg.ErrorHandler != nil {
		return cfg.ErrorHandler(ctx, ErrNotAdmin)
	}
	return ctx.Redirect(cfg.HomeRoute, http.StatusSeeOther)
}
