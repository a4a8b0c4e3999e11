package auth_test

import (
	"context"
	"testing"

	auth "github.com/akhbarkom/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUserMessage_Type(t *testing.T) {
	assert.Equal(t, "user.register", auth.RegisterUserMessage{}.Type())
}

func TestRegisterUserHandler_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("registers a local user", func(t *testing.T) {
		users := newFakeUsers()
		handler := auth.NewRegisterUserHandler(newFakeRepoManager(users, newFakeAdminEntries()))

		var created *auth.User
		err := handler.Execute(ctx, auth.RegisterUserMessage{
			Name:     "Person",
			Email:    "Person@Example.com",
			Password: "sup3r-secret",
			OnUser:   func(u *auth.User) { created = u },
		})
		require.NoError(t, err)
		require.NotNil(t, created)

		assert.Equal(t, "person@example.com", created.Email)
		assert.Equal(t, auth.RoleUser, created.Role)
		assert.NotEqual(t, "sup3r-secret", created.PasswordHash)
		assert.NoError(t, auth.ComparePasswordAndHash("sup3r-secret", created.PasswordHash))
	})

	t.Run("hashid gives deterministic IDs", func(t *testing.T) {
		users := newFakeUsers()
		handler := auth.NewRegisterUserHandler(newFakeRepoManager(users, newFakeAdminEntries()))

		var created *auth.User
		err := handler.Execute(ctx, auth.RegisterUserMessage{
			Name:      "Person",
			Email:     "person@example.com",
			Password:  "sup3r-secret",
			UseHashid: true,
			OnUser:    func(u *auth.User) { created = u },
		})
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.NotEmpty(t, created.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		users := newFakeUsers(&auth.User{Email: "person@example.com", PasswordHash: "hash"})
		handler := auth.NewRegisterUserHandler(newFakeRepoManager(users, newFakeAdminEntries()))

		err := handler.Execute(ctx, auth.RegisterUserMessage{
			Name:     "Person",
			Email:    "person@example.com",
			Password: "sup3r-secret",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDuplicateAccount)
	})

	t.Run("missing fields", func(t *testing.T) {
		handler := auth.NewRegisterUserHandler(newFakeRepoManager(newFakeUsers(), newFakeAdminEntries()))

		for _, msg := range []auth.RegisterUserMessage{
			{Email: "a@b.io", Password: "pw"},
			{Name: "Person", Password: "pw"},
			{Name: "Person", Email: "a@b.io"},
		} {
			err := handler.Execute(ctx, msg)
			assert.ErrorIs(t, err, auth.ErrMalformedInput)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		handler := auth.NewRegisterUserHandler(newFakeRepoManager(newFakeUsers(), newFakeAdminEntries()))

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := handler.Execute(cancelled, auth.RegisterUserMessage{
			Name:     "Person",
			Email:    "person@example.com",
			Password: "sup3r-secret",
		})
		assert.Error(t, err)
	})
}
