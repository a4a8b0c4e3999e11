package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/akhbarkom/go-auth/middleware/guard"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteAuthenticator adapts the Authenticator to HTTP handlers: it moves
// session tokens in and out of cookies and owns the redirect bookkeeping
// for rejected routes.
type RouteAuthenticator struct {
	auth             Authenticator
	cfg              Config
	cookieTTL        time.Duration
	extendedTTL      time.Duration
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

// extendedLoginer is satisfied by Auther; session issuers that cannot mint
// extended sessions fall back to the default TTL.
type extendedLoginer interface {
	LoginWithTTL(ctx context.Context, email, password string, ttl time.Duration) (string, error)
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	cookieTTL := 24 * time.Hour
	if cfg.GetTokenTTL() > 0 {
		cookieTTL = cfg.GetTokenTTL()
	}

	extendedTTL := cookieTTL
	if cfg.GetExtendedTokenTTL() > 0 {
		extendedTTL = cfg.GetExtendedTokenTTL()
	}

	a := &RouteAuthenticator{
		cfg:         cfg,
		auth:        auther,
		Logger:      defLogger{},
		cookieTTL:   cookieTTL,
		extendedTTL: extendedTTL,
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieTTL
}

func (a RouteAuthenticator) GetExtendedCookieDuration() time.Duration {
	return a.extendedTTL
}

// ProtectedRoutes builds the route guard wired to this authenticator's
// token validation. Rules are evaluated in order, first match wins.
func (a *RouteAuthenticator) ProtectedRoutes(rules []guard.Rule, revoker Revoker) router.MiddlewareFunc {
	cfg := guard.Config{
		Rules:            rules,
		TokenValidator:   a.GuardValidator(),
		TokenLookup:      a.cfg.GetTokenLookup(),
		AuthScheme:       a.cfg.GetAuthScheme(),
		ContextKey:       a.cfg.GetContextKey(),
		SignInRoute:      a.cfg.GetSignInRoute(),
		RejectedRouteKey: a.cfg.GetRejectedRouteKey(),
		ContextEnricher: func(c context.Context, claims guard.AuthClaims) context.Context {
			if ac, ok := claims.(AuthClaims); ok {
				return WithClaimsContext(c, ac)
			}
			return c
		},
	}

	if revoker != nil {
		cfg.Revoker = revoker
	}

	return guard.New(cfg)
}

// GuardValidator bridges the session reader into the guard's validator
// interface.
func (a *RouteAuthenticator) GuardValidator() guard.TokenValidator {
	return guard.ValidatorFunc(func(raw string) (guard.AuthClaims, error) {
		claims, err := a.auth.SessionFromToken(raw)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

// Login verifies the payload and, on success, sets the session cookie. The
// returned identity carries only what the token claims carry; callers that
// need fresh store state go through IdentityFromClaims.
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) (Identity, error) {
	duration := a.cookieTTL
	if payload.GetExtendedSession() {
		duration = a.extendedTTL
	}

	token, err := a.login(ctx.Context(), payload, duration)
	if err != nil {
		a.Logger.Error("Login error", "error", err)
		return nil, err
	}

	claims, err := a.auth.SessionFromToken(token)
	if err != nil {
		a.Logger.Error("Login token decode error", "error", err)
		return nil, err
	}

	a.SetSessionCookie(ctx, token, payload.GetExtendedSession())

	return claimsIdentity{claims}, nil
}

func (a *RouteAuthenticator) login(ctx context.Context, payload LoginPayload, ttl time.Duration) (string, error) {
	if ext, ok := a.auth.(extendedLoginer); ok && payload.GetExtendedSession() {
		return ext.LoginWithTTL(ctx, payload.GetEmail(), payload.GetPassword(), ttl)
	}
	return a.auth.Login(ctx, payload.GetEmail(), payload.GetPassword())
}

func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetContextKey())
}

// SetSessionCookie writes the token cookie. Extended sessions get the
// remember-me duration.
func (a *RouteAuthenticator) SetSessionCookie(c router.Context, token string, extended bool) {
	duration := a.cookieTTL
	if extended {
		duration = a.extendedTTL
	}

	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    token,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

// GetRedirect pops the rejected-route cookie, falling back to def.
func (a *RouteAuthenticator) GetRedirect(ctx router.Context, def ...string) string {
	rejectedRoute := a.cfg.GetRejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" {
		if len(def) > 0 {
			return def[0]
		}
		return a.cfg.GetRejectedRouteDefault()
	}
	a.cookieDel(ctx, rejectedRoute)
	return r
}

func (a *RouteAuthenticator) GetRedirectOrDefault(ctx router.Context) string {
	rejectedRoute := a.cfg.GetRejectedRouteKey()
	refererHeader := string(ctx.Referer())

	r := ctx.Cookies(rejectedRoute, refererHeader)
	if r == "" {
		r = a.cfg.GetRejectedRouteDefault()
	}
	a.cookieDel(ctx, rejectedRoute)
	return r
}

// SetRedirect remembers the rejected path so the sign-in flow can send the
// caller back where they came from.
func (a *RouteAuthenticator) SetRedirect(ctx router.Context) {
	rejectedRoute := a.cfg.GetRejectedRouteKey()

	a.Logger.Info("Setting redirect cookie", "key", rejectedRoute, "path", ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
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

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error, redirecting to sign-in",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	a.SetRedirect(c)

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect(a.cfg.GetSignInRoute(), statusCode)
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.Status(richErr.Code).Render("errors/500", router.ViewContext{
			"error": richErr,
		})
	}
}

// claimsIdentity projects decoded claims back onto the Identity interface.
// The name is not in the token, so Name mirrors the email.
type claimsIdentity struct {
	claims AuthClaims
}

func (c claimsIdentity) ID() string    { return c.claims.UserID() }
func (c claimsIdentity) Name() string  { return c.claims.Email() }
func (c claimsIdentity) Email() string { return c.claims.Email() }
func (c claimsIdentity) Role() string  { return c.claims.Role() }

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)
