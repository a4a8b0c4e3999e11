package auth_test

import (
	"context"
	"errors"
	"testing"

	auth "github.com/akhbarkom/go-auth"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistryFixture(seed ...*auth.User) (*auth.Registry, *fakeUsers, *fakeAdminEntries) {
	users := newFakeUsers(seed...)
	admins := newFakeAdminEntries()
	registry := auth.NewRegistry(newFakeRepoManager(users, admins)).WithLogger(noopLogger{})
	return registry, users, admins
}

func TestRegistry_GrantAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("promotes an existing user and records the entry", func(t *testing.T) {
		existing := &auth.User{
			ID:           uuid.New(),
			Email:        "ops@example.com",
			PasswordHash: "hash",
			Role:         auth.RoleUser,
		}
		registry, users, admins := newRegistryFixture(existing)

		user, err := registry.GrantAdmin(ctx, "ops@example.com", "")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, user.Role)

		stored, err := users.GetByEmail(ctx, "ops@example.com")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, stored.Role)

		_, err = admins.GetByEmail(ctx, "ops@example.com")
		assert.NoError(t, err)
	})

	t.Run("creates the account when none exists", func(t *testing.T) {
		registry, users, admins := newRegistryFixture()

		user, err := registry.GrantAdmin(ctx, "new@example.com", "initial-password")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, user.Role)
		assert.NotEmpty(t, user.PasswordHash)
		assert.NoError(t, auth.ComparePasswordAndHash("initial-password", user.PasswordHash))

		_, err = users.GetByEmail(ctx, "new@example.com")
		assert.NoError(t, err)
		_, err = admins.GetByEmail(ctx, "new@example.com")
		assert.NoError(t, err)
	})

	t.Run("missing initial password for a new account", func(t *testing.T) {
		registry, users, _ := newRegistryFixture()

		_, err := registry.GrantAdmin(ctx, "new@example.com", "")
		require.Error(t, err)

		var richErr *goerrors.Error
		require.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, goerrors.CategoryValidation, richErr.Category)

		// nothing was created
		_, err = users.GetByEmail(ctx, "new@example.com")
		assert.Error(t, err)
	})

	t.Run("granting an existing admin is idempotent", func(t *testing.T) {
		registry, _, admins := newRegistryFixture(&auth.User{
			ID:           uuid.New(),
			Email:        "ops@example.com",
			PasswordHash: "hash",
			Role:         auth.RoleUser,
		})

		_, err := registry.GrantAdmin(ctx, "ops@example.com", "")
		require.NoError(t, err)
		_, err = registry.GrantAdmin(ctx, "ops@example.com", "")
		require.NoError(t, err)

		entries, err := admins.List(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("normalizes the email", func(t *testing.T) {
		registry, _, admins := newRegistryFixture(&auth.User{
			ID:           uuid.New(),
			Email:        "ops@example.com",
			PasswordHash: "hash",
			Role:         auth.RoleUser,
		})

		_, err := registry.GrantAdmin(ctx, "  OPS@Example.COM ", "")
		require.NoError(t, err)

		_, err = admins.GetByEmail(ctx, "ops@example.com")
		assert.NoError(t, err)
	})

	t.Run("empty email", func(t *testing.T) {
		registry, _, _ := newRegistryFixture()

		_, err := registry.GrantAdmin(ctx, "   ", "pw")
		assert.ErrorIs(t, err, auth.ErrMalformedInput)
	})
}

func TestRegistry_GrantAdmin_PartialFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("registry write fails after the promotion", func(t *testing.T) {
		registry, users, admins := newRegistryFixture(&auth.User{
			ID:           uuid.New(),
			Email:        "ops@example.com",
			PasswordHash: "hash",
			Role:         auth.RoleUser,
		})
		admins.failAdd = errors.New("insert failed")

		_, err := registry.GrantAdmin(ctx, "ops@example.com", "")
		require.Error(t, err)

		var pge *auth.PartialGrantError
		require.True(t, goerrors.As(err, &pge))
		assert.Equal(t, "ops@example.com", pge.Email)
		assert.Equal(t, auth.GrantStepAddEntry, pge.Failed)
		assert.Equal(t, []auth.GrantStep{auth.GrantStepEnsureUser, auth.GrantStepPromoteRole}, pge.Completed)

		// the role promotion stuck; the error is the reconciliation signal
		stored, getErr := users.GetByEmail(ctx, "ops@example.com")
		require.NoError(t, getErr)
		assert.Equal(t, auth.RoleAdmin, stored.Role)
	})

	t.Run("promotion fails before any registry write", func(t *testing.T) {
		registry, users, _ := newRegistryFixture(&auth.User{
			ID:           uuid.New(),
			Email:        "ops@example.com",
			PasswordHash: "hash",
			Role:         auth.RoleUser,
		})
		users.failUpdateRole = errors.New("update failed")

		_, err := registry.GrantAdmin(ctx, "ops@example.com", "")
		require.Error(t, err)

		var pge *auth.PartialGrantError
		require.True(t, goerrors.As(err, &pge))
		assert.Equal(t, auth.GrantStepPromoteRole, pge.Failed)
		assert.Equal(t, []auth.GrantStep{auth.GrantStepEnsureUser}, pge.Completed)
	})
}

func TestRegistry_RevokeAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("demotes and removes the entry", func(t *testing.T) {
		registry, users, admins := newRegistryFixture(&auth.User{
			ID:           uuid.New(),
			Email:        "ops@example.com",
			PasswordHash: "hash",
			Role:         auth.RoleUser,
		})

		_, err := registry.GrantAdmin(ctx, "ops@example.com", "")
		require.NoError(t, err)

		require.NoError(t, registry.RevokeAdmin(ctx, "ops@example.com"))

		stored, err := users.GetByEmail(ctx, "ops@example.com")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleUser, stored.Role)

		_, err = admins.GetByEmail(ctx, "ops@example.com")
		assert.Error(t, err)
	})

	t.Run("revoking a non-admin is not an error", func(t *testing.T) {
		registry, _, _ := newRegistryFixture(&auth.User{
			ID:           uuid.New(),
			Email:        "plain@example.com",
			PasswordHash: "hash",
			Role:         auth.RoleUser,
		})

		assert.NoError(t, registry.RevokeAdmin(ctx, "plain@example.com"))
	})

	t.Run("revoking an unknown email is not an error", func(t *testing.T) {
		registry, _, _ := newRegistryFixture()

		assert.NoError(t, registry.RevokeAdmin(ctx, "ghost@example.com"))
	})
}

func TestRegistry_IsListed(t *testing.T) {
	ctx := context.Background()
	registry, _, admins := newRegistryFixture()

	_, err := admins.Add(ctx, "ops@example.com")
	require.NoError(t, err)

	listed, err := registry.IsListed(ctx, "OPS@example.com")
	require.NoError(t, err)
	assert.True(t, listed)

	listed, err = registry.IsListed(ctx, "ghost@example.com")
	require.NoError(t, err)
	assert.False(t, listed)
}

func TestRegistry_Reconcile(t *testing.T) {
	ctx := context.Background()

	adminUser := &auth.User{
		ID:           uuid.New(),
		Email:        "real-admin@example.com",
		PasswordHash: "hash",
		Role:         auth.RoleAdmin,
	}
	plainUser := &auth.User{
		ID:           uuid.New(),
		Email:        "plain@example.com",
		PasswordHash: "hash",
		Role:         auth.RoleUser,
	}

	registry, _, admins := newRegistryFixture(adminUser, plainUser)

	// drift: a stale entry with no admin-role principal behind it
	_, err := admins.Add(ctx, "stale@example.com")
	require.NoError(t, err)

	require.NoError(t, registry.Reconcile(ctx))

	entries, err := registry.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "real-admin@example.com", entries[0].Email)
}

func TestRegistry_EnsureBootstrapAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds the first admin with a name", func(t *testing.T) {
		registry, _, admins := newRegistryFixture()

		user, err := registry.EnsureBootstrapAdmin(ctx, "root@example.com", "Root", "bootstrap-pw")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, user.Role)
		assert.Equal(t, "Root", user.Name)

		_, err = admins.GetByEmail(ctx, "root@example.com")
		assert.NoError(t, err)
	})

	t.Run("existing name is left alone", func(t *testing.T) {
		registry, _, _ := newRegistryFixture(&auth.User{
			ID:           uuid.New(),
			Email:        "root@example.com",
			Name:         "Original",
			PasswordHash: "hash",
			Role:         auth.RoleUser,
		})

		user, err := registry.EnsureBootstrapAdmin(ctx, "root@example.com", "Replacement", "pw")
		require.NoError(t, err)
		assert.Equal(t, "Original", user.Name)
	})
}
