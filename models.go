package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default role assigned at registration
	RoleUser UserRole = "user"
	// RoleAdmin grants access to the management surface
	RoleAdmin UserRole = "admin"
)

// IsValidRole checks the role against the predefined set
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a UserRole
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}

// CredentialOrigin describes which credential shapes a user carries.
type CredentialOrigin int

const (
	// OriginNone violates the principal invariant; such records cannot authenticate
	OriginNone CredentialOrigin = iota
	// OriginLocal has only an email/password credential
	OriginLocal
	// OriginLinked has only external identity linkages
	OriginLinked
	// OriginBoth has a password and at least one linkage
	OriginBoth
)

// User is the principal model
type User struct {
	bun.BaseModel    `bun:"table:users,alias:usr"`
	ID               uuid.UUID         `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role             UserRole          `bun:"user_role,notnull" json:"user_role,omitempty"`
	Name             string            `bun:"name" json:"name,omitempty"`
	Email            string            `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash     string            `bun:"password_hash" json:"-"`
	LinkedIdentities []*LinkedIdentity `bun:"rel:has-many,join:id=user_id" json:"linked_identities,omitempty"`
	LoggedInAt       *time.Time        `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt        *time.Time        `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time        `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt        *time.Time        `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// CredentialOrigin reports the credential shapes present on the record.
func (u *User) CredentialOrigin() CredentialOrigin {
	hasPassword := u.PasswordHash != ""
	hasLinkage := len(u.LinkedIdentities) > 0

	switch {
	case hasPassword && hasLinkage:
		return OriginBoth
	case hasPassword:
		return OriginLocal
	case hasLinkage:
		return OriginLinked
	default:
		return OriginNone
	}
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// LinkedIdentity records an external provider linkage for a user.
// The (provider, subject_id) pair is the stable key the provider reports.
type LinkedIdentity struct {
	bun.BaseModel `bun:"table:linked_identities,alias:lid"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Provider      string     `bun:"provider,notnull" json:"provider,omitempty"`
	SubjectID     string     `bun:"provider_subject_id,notnull" json:"provider_subject_id,omitempty"`
	Email         string     `bun:"email" json:"email,omitempty"`
	Name          string     `bun:"name" json:"name,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// AdminEntry is an allowlist record in the admin registry. It is keyed by
// email and carries no foreign key to users; the registry and the users
// role column are mutated by different code paths and reconciled by the
// Registry service.
type AdminEntry struct {
	bun.BaseModel `bun:"table:admin_registry,alias:adm"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// NormalizeEmail lower-cases and trims an email so it can be used as the
// unique principal key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
