package guard_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	auth "github.com/akhbarkom/go-auth"
	"github.com/akhbarkom/go-auth/middleware/guard"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testRules = []guard.Rule{
	{Pattern: "/admin/**", Policy: guard.PolicyAdmin},
	{Pattern: "/admin", Policy: guard.PolicyAdmin},
	{Pattern: "/account/**", Policy: guard.PolicyAuthenticated},
	{Pattern: "/**", Policy: guard.PolicyPublic},
}

// staticValidator accepts exactly one token string and returns fixed claims.
type staticValidator struct {
	token  string
	claims guard.AuthClaims
}

func (v staticValidator) Validate(tokenString string) (guard.AuthClaims, error) {
	if tokenString != v.token {
		return nil, errors.New("signature mismatch")
	}
	return v.claims, nil
}

type staticRevoker struct {
	revoked map[string]bool
	err     error
}

func (r staticRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	return r.revoked[tokenID], nil
}

func sessionClaims(role string) guard.AuthClaims {
	return &auth.SessionClaims{
		UID:       "user-1",
		UserEmail: "person@example.com",
		UserRole:  role,
	}
}

func adminClaims(jti string) guard.AuthClaims {
	c := sessionClaims(auth.RoleAdmin).(*auth.SessionClaims)
	c.ID = jti
	return c
}

type guardResult struct {
	nextCalled bool
	redirected string
	status     int
	err        error
}

// requestMock pins Path and OriginalURL, which the base mock does not route
// through testify expectations.
type requestMock struct {
	*router.MockContext
	path        string
	originalURL string
}

func (m *requestMock) Path() string { return m.path }

func (m *requestMock) OriginalURL() string {
	if m.originalURL != "" {
		return m.originalURL
	}
	return m.path
}

// runGuard drives the middleware against a mocked request. An empty token
// leaves the Authorization header unset.
func runGuard(t *testing.T, cfg guard.Config, method, path, token string) guardResult {
	t.Helper()

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = "header:" + router.HeaderAuthorization
	}

	ctx := &requestMock{MockContext: router.NewMockContext(), path: path}
	ctx.On("Method").Return(method).Maybe()
	ctx.On("Context").Return(context.Background()).Maybe()
	ctx.On("Locals", "session", mock.Anything).Return(nil).Maybe()

	header := ""
	if token != "" {
		header = "Bearer " + token
		ctx.HeadersM[router.HeaderAuthorization] = header
	}
	ctx.On("GetString", router.HeaderAuthorization, "").Return(header)

	res := guardResult{}
	ctx.On("Redirect", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		res.redirected = args.String(0)
		if codes, ok := args.Get(1).([]int); ok && len(codes) > 0 {
			res.status = codes[0]
		}
	}).Return(nil).Maybe()

	handler := guard.New(cfg)(func(c router.Context) error {
		res.nextCalled = true
		return nil
	})

	res.err = handler(ctx)
	return res
}

func TestGuard_PublicRoutes(t *testing.T) {
	cfg := guard.Config{
		Rules:          testRules,
		TokenValidator: staticValidator{token: "valid", claims: sessionClaims(auth.RoleUser)},
	}

	t.Run("anonymous request passes", func(t *testing.T) {
		res := runGuard(t, cfg, "GET", "/news/today", "")
		require.NoError(t, res.err)
		assert.True(t, res.nextCalled)
		assert.Empty(t, res.redirected)
	})

	t.Run("bad token still passes public routes", func(t *testing.T) {
		res := runGuard(t, cfg, "GET", "/news/today", "forged")
		require.NoError(t, res.err)
		assert.True(t, res.nextCalled)
	})

	t.Run("valid session passes", func(t *testing.T) {
		res := runGuard(t, cfg, "GET", "/news/today", "valid")
		require.NoError(t, res.err)
		assert.True(t, res.nextCalled)
	})
}

func TestGuard_AuthenticatedRoutes(t *testing.T) {
	cfg := guard.Config{
		Rules:          testRules,
		TokenValidator: staticValidator{token: "valid", claims: sessionClaims(auth.RoleUser)},
	}

	t.Run("valid session passes", func(t *testing.T) {
		res := runGuard(t, cfg, "GET", "/account/settings", "valid")
		require.NoError(t, res.err)
		assert.True(t, res.nextCalled)
	})

	t.Run("anonymous GET redirects to sign-in with 302", func(t *testing.T) {
		res := runGuard(t, cfg, "GET", "/account/settings", "")
		require.NoError(t, res.err)
		assert.False(t, res.nextCalled)
		assert.Equal(t, "/login", res.redirected)
		assert.Equal(t, http.StatusFound, res.status)
	})

	t.Run("anonymous POST redirects with 303", func(t *testing.T) {
		res := runGuard(t, cfg, "POST", "/account/settings", "")
		require.NoError(t, res.err)
		assert.Equal(t, "/login", res.redirected)
		assert.Equal(t, http.StatusSeeOther, res.status)
	})

	t.Run("forged token collapses to unauthenticated", func(t *testing.T) {
		res := runGuard(t, cfg, "GET", "/account/settings", "forged")
		require.NoError(t, res.err)
		assert.False(t, res.nextCalled)
		assert.Equal(t, "/login", res.redirected)
	})

	t.Run("trailing slash and casing cannot dodge the policy", func(t *testing.T) {
		for _, path := range []string{"/Account/Settings", "/account/settings/", "/ACCOUNT/settings"} {
			res := runGuard(t, cfg, "GET", path, "")
			assert.False(t, res.nextCalled, "path %q", path)
			assert.Equal(t, "/login", res.redirected, "path %q", path)
		}
	})
}

func TestGuard_AdminRoutes(t *testing.T) {
	t.Run("admin session passes", func(t *testing.T) {
		cfg := guard.Config{
			Rules:          testRules,
			TokenValidator: staticValidator{token: "valid", claims: sessionClaims(auth.RoleAdmin)},
		}

		res := runGuard(t, cfg, "GET", "/admin/tools", "valid")
		require.NoError(t, res.err)
		assert.True(t, res.nextCalled)
	})

	t.Run("anonymous goes to sign-in", func(t *testing.T) {
		cfg := guard.Config{
			Rules:          testRules,
			TokenValidator: staticValidator{token: "valid", claims: sessionClaims(auth.RoleAdmin)},
		}

		res := runGuard(t, cfg, "GET", "/admin/tools", "")
		assert.False(t, res.nextCalled)
		assert.Equal(t, "/login", res.redirected)
	})

	t.Run("authenticated non-admin goes home, not to an error page", func(t *testing.T) {
		cfg := guard.Config{
			Rules:          testRules,
			TokenValidator: staticValidator{token: "valid", claims: sessionClaims(auth.RoleUser)},
		}

		res := runGuard(t, cfg, "GET", "/admin/tools", "valid")
		require.NoError(t, res.err)
		assert.False(t, res.nextCalled)
		assert.Equal(t, "/", res.redirected)
		assert.Equal(t, http.StatusSeeOther, res.status)
	})

	t.Run("revoked admin token is rejected", func(t *testing.T) {
		cfg := guard.Config{
			Rules:          testRules,
			TokenValidator: staticValidator{token: "valid", claims: adminClaims("jti-revoked")},
			Revoker:        staticRevoker{revoked: map[string]bool{"jti-revoked": true}},
		}

		res := runGuard(t, cfg, "GET", "/admin/tools", "valid")
		assert.False(t, res.nextCalled)
		assert.Equal(t, "/login", res.redirected)
	})

	t.Run("live admin token passes the revocation check", func(t *testing.T) {
		cfg := guard.Config{
			Rules:          testRules,
			TokenValidator: staticValidator{token: "valid", claims: adminClaims("jti-live")},
			Revoker:        staticRevoker{revoked: map[string]bool{}},
		}

		res := runGuard(t, cfg, "GET", "/admin/tools", "valid")
		require.NoError(t, res.err)
		assert.True(t, res.nextCalled)
	})

	t.Run("revocation store failure fails closed", func(t *testing.T) {
		cfg := guard.Config{
			Rules:          testRules,
			TokenValidator: staticValidator{token: "valid", claims: adminClaims("jti-live")},
			Revoker:        staticRevoker{err: errors.New("redis down")},
		}

		res := runGuard(t, cfg, "GET", "/admin/tools", "valid")
		assert.False(t, res.nextCalled)
		assert.Equal(t, "/login", res.redirected)
	})
}

func TestGuard_DefaultPolicy(t *testing.T) {
	t.Run("unmatched paths default to public", func(t *testing.T) {
		cfg := guard.Config{
			Rules:          []guard.Rule{{Pattern: "/admin/**", Policy: guard.PolicyAdmin}},
			TokenValidator: staticValidator{token: "valid", claims: sessionClaims(auth.RoleUser)},
		}

		res := runGuard(t, cfg, "GET", "/anything", "")
		require.NoError(t, res.err)
		assert.True(t, res.nextCalled)
	})

	t.Run("default can be tightened", func(t *testing.T) {
		cfg := guard.Config{
			Rules:          []guard.Rule{{Pattern: "/login", Policy: guard.PolicyPublic}},
			DefaultPolicy:  guard.PolicyAuthenticated,
			TokenValidator: staticValidator{token: "valid", claims: sessionClaims(auth.RoleUser)},
		}

		res := runGuard(t, cfg, "GET", "/anything", "")
		assert.False(t, res.nextCalled)
		assert.Equal(t, "/login", res.redirected)

		res = runGuard(t, cfg, "GET", "/login", "")
		assert.True(t, res.nextCalled)
	})
}

func TestGuard_FirstMatchWins(t *testing.T) {
	cfg := guard.Config{
		Rules: []guard.Rule{
			{Pattern: "/admin/health", Policy: guard.PolicyPublic},
			{Pattern: "/admin/**", Policy: guard.PolicyAdmin},
		},
		TokenValidator: staticValidator{token: "valid", claims: sessionClaims(auth.RoleUser)},
	}

	res := runGuard(t, cfg, "GET", "/admin/health", "")
	require.NoError(t, res.err)
	assert.True(t, res.nextCalled, "more specific earlier rule applies")

	res = runGuard(t, cfg, "GET", "/admin/tools", "")
	assert.False(t, res.nextCalled)
}

func TestGuard_ErrorHandlerOverride(t *testing.T) {
	var handled error
	cfg := guard.Config{
		Rules:          testRules,
		TokenValidator: staticValidator{token: "valid", claims: sessionClaims(auth.RoleUser)},
		ErrorHandler: func(c router.Context, err error) error {
			handled = err
			return nil
		},
	}

	res := runGuard(t, cfg, "GET", "/account/settings", "")
	require.NoError(t, res.err)
	assert.False(t, res.nextCalled)
	assert.Empty(t, res.redirected, "custom handler replaces the redirect")
	assert.Error(t, handled)
}

func TestGuard_StoresClaimsInLocals(t *testing.T) {
	claims := sessionClaims(auth.RoleUser)
	cfg := guard.Config{
		Rules:          testRules,
		TokenValidator: staticValidator{token: "valid", claims: claims},
		TokenLookup:    "header:" + router.HeaderAuthorization,
	}

	ctx := &requestMock{MockContext: router.NewMockContext(), path: "/account/settings"}
	ctx.HeadersM[router.HeaderAuthorization] = "Bearer valid"
	ctx.On("GetString", router.HeaderAuthorization, "").Return("Bearer valid")

	var stored any
	ctx.On("Locals", "session", mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1)
	}).Return(nil)

	handler := guard.New(cfg)(func(c router.Context) error { return nil })
	require.NoError(t, handler(ctx))

	require.NotNil(t, stored)
	got, ok := stored.(guard.AuthClaims)
	require.True(t, ok)
	assert.Equal(t, "user-1", got.UserID())
}

func TestGuard_ContextEnricher(t *testing.T) {
	enriched := false
	cfg := guard.Config{
		Rules:          testRules,
		TokenValidator: staticValidator{token: "valid", claims: sessionClaims(auth.RoleUser)},
		TokenLookup:    "header:" + router.HeaderAuthorization,
		ContextEnricher: func(c context.Context, claims guard.AuthClaims) context.Context {
			enriched = true
			return auth.WithClaimsContext(c, claims.(*auth.SessionClaims))
		},
	}

	ctx := &requestMock{MockContext: router.NewMockContext(), path: "/account/settings"}
	ctx.HeadersM[router.HeaderAuthorization] = "Bearer valid"
	ctx.On("GetString", router.HeaderAuthorization, "").Return("Bearer valid")
	ctx.On("Context").Return(context.Background())
	ctx.On("Locals", "session", mock.Anything).Return(nil)
	ctx.On("SetContext", mock.Anything).Return()

	handler := guard.New(cfg)(func(c router.Context) error { return nil })
	require.NoError(t, handler(ctx))
	assert.True(t, enriched)
}

func TestGuard_RejectedRouteCookie(t *testing.T) {
	cfg := guard.Config{
		Rules:            testRules,
		TokenValidator:   staticValidator{token: "valid", claims: sessionClaims(auth.RoleUser)},
		TokenLookup:      "header:" + router.HeaderAuthorization,
		RejectedRouteKey: "rejected_route",
	}

	ctx := &requestMock{
		MockContext: router.NewMockContext(),
		path:        "/account/settings",
		originalURL: "/account/settings?tab=profile",
	}
	ctx.On("Method").Return("GET")
	ctx.On("GetString", router.HeaderAuthorization, "").Return("")

	var cookie *router.Cookie
	ctx.On("Cookie", mock.AnythingOfType("*router.Cookie")).Run(func(args mock.Arguments) {
		cookie = args.Get(0).(*router.Cookie)
	}).Return()
	ctx.On("Redirect", "/login", []int{http.StatusFound}).Return(nil)

	handler := guard.New(cfg)(func(c router.Context) error { return nil })
	require.NoError(t, handler(ctx))

	require.NotNil(t, cookie)
	assert.Equal(t, "rejected_route", cookie.Name)
	assert.Equal(t, "/account/settings?tab=profile", cookie.Value)
	assert.True(t, cookie.HTTPOnly)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), cookie.Expires, 5*time.Second)
}

func TestGuard_PanicsWithoutValidator(t *testing.T) {
	assert.Panics(t, func() {
		guard.New(guard.Config{Rules: testRules})
	})
}

func TestGuard_PanicsOnBadPattern(t *testing.T) {
	assert.Panics(t, func() {
		guard.New(guard.Config{
			Rules:          []guard.Rule{{Pattern: "/admin/[", Policy: guard.PolicyAdmin}},
			TokenValidator: staticValidator{},
		})
	})
}
