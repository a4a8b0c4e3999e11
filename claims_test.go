package auth_test

import (
	"testing"
	"time"

	auth "github.com/akhbarkom/go-auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestSessionClaims_Accessors(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	exp := now.Add(time.Hour)

	claims := &auth.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "subj-1",
			ID:        "jti-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UID:       "user-1",
		UserEmail: "person@example.com",
		UserRole:  auth.RoleUser,
	}

	assert.Equal(t, "subj-1", claims.Subject())
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "person@example.com", claims.Email())
	assert.Equal(t, auth.RoleUser, claims.Role())
	assert.Equal(t, "jti-1", claims.TokenID())
	assert.Equal(t, now.Unix(), claims.IssuedAt().Unix())
	assert.Equal(t, exp.Unix(), claims.Expires().Unix())
}

func TestSessionClaims_UserIDFallsBackToSubject(t *testing.T) {
	claims := &auth.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "subj-only"},
	}
	assert.Equal(t, "subj-only", claims.UserID())
}

func TestSessionClaims_Roles(t *testing.T) {
	t.Run("admin role", func(t *testing.T) {
		claims := &auth.SessionClaims{UserRole: auth.RoleAdmin}

		assert.True(t, claims.IsAdmin())
		assert.True(t, claims.HasRole(auth.RoleAdmin))
		assert.False(t, claims.HasRole(auth.RoleUser))
	})

	t.Run("user role", func(t *testing.T) {
		claims := &auth.SessionClaims{UserRole: auth.RoleUser}

		assert.False(t, claims.IsAdmin())
		assert.True(t, claims.HasRole(auth.RoleUser))
	})

	t.Run("empty role grants nothing", func(t *testing.T) {
		claims := &auth.SessionClaims{}

		assert.False(t, claims.IsAdmin())
		assert.False(t, claims.HasRole(auth.RoleUser))
	})
}

func TestSessionClaims_ZeroTimes(t *testing.T) {
	claims := &auth.SessionClaims{}

	assert.True(t, claims.Expires().IsZero())
	assert.True(t, claims.IssuedAt().IsZero())
}
