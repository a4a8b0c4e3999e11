package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the decoded session claim set presented to handlers
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

// SessionClaims is the concrete payload embedded in signed session tokens.
// Claims are immutable once signed; the role reflects the principal's role
// at issuance time only.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID       string `json:"uid,omitempty"`
	UserEmail string `json:"email,omitempty"`
	UserRole  string `json:"role,omitempty"`
}

var _ AuthClaims = (*SessionClaims)(nil)

// Subject returns the subject claim
func (c *SessionClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the principal ID
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Email returns the email claim
func (c *SessionClaims) Email() string {
	return c.UserEmail
}

// Role returns the role claim as frozen at issuance
func (c *SessionClaims) Role() string {
	return c.UserRole
}

// IsAdmin reports whether the role claim is admin
func (c *SessionClaims) IsAdmin() bool {
	return c.UserRole == RoleAdmin
}

// HasRole checks if the claim carries a specific role
func (c *SessionClaims) HasRole(role string) bool {
	return c.UserRole == role
}

// TokenID returns the jti claim, used by revocation lists
func (c *SessionClaims) TokenID() string {
	return c.RegisteredClaims.ID
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
