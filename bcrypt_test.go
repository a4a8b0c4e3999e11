package auth_test

import (
	"testing"

	auth "github.com/akhbarkom/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Run("hashes and verifies round trip", func(t *testing.T) {
		hash, err := auth.HashPassword("sup3r-secret")
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
		assert.NotEqual(t, "sup3r-secret", hash)

		assert.NoError(t, auth.ComparePasswordAndHash("sup3r-secret", hash))
	})

	t.Run("same password yields distinct hashes", func(t *testing.T) {
		h1, err := auth.HashPassword("sup3r-secret")
		require.NoError(t, err)
		h2, err := auth.HashPassword("sup3r-secret")
		require.NoError(t, err)

		assert.NotEqual(t, h1, h2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := auth.HashPassword("")
		assert.ErrorIs(t, err, auth.ErrMalformedInput)
	})
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)

	t.Run("mismatch maps to invalid credentials", func(t *testing.T) {
		err := auth.ComparePasswordAndHash("battery-staple", hash)
		assert.True(t, auth.IsInvalidCredentials(err))
	})

	t.Run("garbage hash fails without matching the credential error", func(t *testing.T) {
		err := auth.ComparePasswordAndHash("correct-horse", "not-a-bcrypt-digest")
		require.Error(t, err)
		assert.False(t, auth.IsInvalidCredentials(err))
	})
}

func TestBurnHashComparison(t *testing.T) {
	// the burn path always fails with the same error the real mismatch
	// path produces
	err := auth.BurnHashComparison("whatever")
	assert.True(t, auth.IsInvalidCredentials(err))

	real := auth.ComparePasswordAndHash("a", mustHash(t, "b"))
	assert.Equal(t, real.Error(), err.Error())
}
