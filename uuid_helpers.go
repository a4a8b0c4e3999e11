package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ensureTokenID assigns a fresh jti when none is present so independent
// issuances for the same principal stay distinguishable and revocable.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}

// ClaimsUserUUID parses the claim subject as a UUID.
func ClaimsUserUUID(claims AuthClaims) (uuid.UUID, error) {
	if claims == nil {
		return uuid.Nil, ErrUnableToDecodeSession
	}
	return uuid.Parse(claims.UserID())
}

// HasUserUUID reports whether ClaimsUserUUID will succeed.
func HasUserUUID(claims AuthClaims) bool {
	_, err := ClaimsUserUUID(claims)
	return err == nil
}
