package auth_test

import (
	"context"
	"testing"

	auth "github.com/akhbarkom/go-auth"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUserContext(t *testing.T) {
	user := &auth.User{ID: uuid.New(), Email: "person@example.com"}

	ctx := auth.WithContext(context.Background(), user)

	got, ok := auth.FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, user, got)

	_, ok = auth.FromContext(context.Background())
	assert.False(t, ok)
}

func TestClaimsContext(t *testing.T) {
	claims := &auth.SessionClaims{UID: "user-1", UserRole: auth.RoleAdmin}

	ctx := auth.WithClaimsContext(context.Background(), claims)

	got, ok := auth.GetClaims(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-1", got.UserID())

	_, ok = auth.GetClaims(context.Background())
	assert.False(t, ok)
}

func TestGetRouterClaims(t *testing.T) {
	t.Run("reads claims from locals", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock["session"] = &auth.SessionClaims{UID: "user-1"}

		claims, ok := auth.GetRouterClaims(ctx, "session")
		assert.True(t, ok)
		assert.Equal(t, "user-1", claims.UserID())
	})

	t.Run("empty key falls back to the session default", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock["session"] = &auth.SessionClaims{UID: "user-1"}

		_, ok := auth.GetRouterClaims(ctx, "")
		assert.True(t, ok)
	})

	t.Run("missing locals", func(t *testing.T) {
		ctx := router.NewMockContext()

		_, ok := auth.GetRouterClaims(ctx, "session")
		assert.False(t, ok)
	})

	t.Run("wrong type in locals", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock["session"] = "not-claims"

		_, ok := auth.GetRouterClaims(ctx, "session")
		assert.False(t, ok)
	})
}

func TestIsAdminRequest(t *testing.T) {
	t.Run("admin claims", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock["session"] = &auth.SessionClaims{UID: "user-1", UserRole: auth.RoleAdmin}

		assert.True(t, auth.IsAdminRequest(ctx, "session"))
	})

	t.Run("plain user claims", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock["session"] = &auth.SessionClaims{UID: "user-1", UserRole: auth.RoleUser}

		assert.False(t, auth.IsAdminRequest(ctx, "session"))
	})

	t.Run("anonymous request", func(t *testing.T) {
		ctx := router.NewMockContext()

		assert.False(t, auth.IsAdminRequest(ctx, "session"))
	})
}
