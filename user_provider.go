package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// UserStore is the slice of the credential store the verifier needs
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// UserProvider verifies local credentials against the credential store
type UserProvider struct {
	store  UserStore
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserStore) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = l
	return u
}

// VerifyIdentity will find the user, compare the password, and return the
// identity. Every unverifiable pair fails with the same ErrInvalidCredentials;
// lookup misses and passwordless accounts burn a hash comparison so the
// failure cost does not reveal which case was hit.
func (u UserProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	if email == "" || password == "" {
		return nil, ErrMalformedInput
	}

	user, err := u.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, BurnHashComparison(password)
		}
		return nil, WrapStoreError(err)
	}

	if user == nil || user.CredentialOrigin() == OriginLinked || user.CredentialOrigin() == OriginNone {
		// account exists but has no local credential
		return nil, BurnHashComparison(password)
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := u.store.TrackSuccessfulLogin(ctx, user); err != nil {
		u.logger.Error("failed to track successful login", "error", err)
	}

	return NewIdentityFromUser(user), nil
}

// FindIdentityByEmail looks up an identity without verifying credentials.
func (u UserProvider) FindIdentityByEmail(ctx context.Context, email string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, WrapStoreError(err)
	}

	if user == nil {
		return nil, ErrIdentityNotFound
	}

	return NewIdentityFromUser(user), nil
}

var _ IdentityProvider = (*UserProvider)(nil)
