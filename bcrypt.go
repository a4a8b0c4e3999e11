package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor used for new password hashes
var BcryptCost = 14

// dummyHash is a valid bcrypt digest of a random throwaway value. Verifiers
// compare against it when no stored hash exists so the unknown-email path
// costs the same as a real mismatch. Must share BcryptCost with real hashes,
// comparison time tracks the cost embedded in the digest.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("akhbarkom-dummy-credential"), BcryptCost)

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrMalformedInput
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return err
	}
	return nil
}

// BurnHashComparison runs a bcrypt comparison against the dummy digest and
// always fails. Call it on lookup misses to keep response timing uniform.
func BurnHashComparison(password string) error {
	bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
	return ErrInvalidCredentials
}
