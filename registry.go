package auth

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Registry manages the admin allowlist. The users table role column is the
// authoritative admin marker; the allowlist is a derived view the grant and
// revoke operations keep in step. The two stores are not covered by one
// transaction, so a grant that fails partway surfaces a PartialGrantError
// instead of silently leaving them disagreeing.
type Registry struct {
	repo   RepositoryManager
	logger Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRegistry creates an admin registry service.
func NewRegistry(repo RepositoryManager) *Registry {
	return &Registry{
		repo:   repo,
		logger: defLogger{},
		locks:  map[string]*sync.Mutex{},
	}
}

func (r *Registry) WithLogger(l Logger) *Registry {
	r.logger = l
	return r
}

// emailLock serializes grant/revoke per email so interleaved calls cannot
// leave the role column and the allowlist disagreeing.
func (r *Registry) emailLock(email string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[email]
	if !ok {
		l = &sync.Mutex{}
		r.locks[email] = l
	}
	return l
}

// GrantAdmin promotes the principal behind email to admin and records the
// allowlist entry. When no principal exists one is created with the supplied
// initial password. The three steps are one logical operation; a failure
// after the first successful step returns a PartialGrantError carrying the
// completed steps for manual reconciliation.
func (r *Registry) GrantAdmin(ctx context.Context, email, initialPassword string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrMalformedInput
	}

	lock := r.emailLock(email)
	lock.Lock()
	defer lock.Unlock()

	var completed []GrantStep

	user, err := r.ensureUser(ctx, email, initialPassword)
	if err != nil {
		// nothing mutated yet, no partial state to report
		return nil, err
	}
	completed = append(completed, GrantStepEnsureUser)

	if user.Role != RoleAdmin {
		if _, err := r.repo.Users().UpdateRole(ctx, user.ID, RoleAdmin); err != nil {
			return nil, r.partialFailure(email, completed, GrantStepPromoteRole, err)
		}
		user.Role = RoleAdmin
	}
	completed = append(completed, GrantStepPromoteRole)

	if _, err := r.repo.AdminRegistry().Add(ctx, email); err != nil {
		return nil, r.partialFailure(email, completed, GrantStepAddEntry, err)
	}

	r.logger.Info("admin granted", "email", email, "user_id", user.ID.String())

	return user, nil
}

// RevokeAdmin removes the allowlist entry and demotes the principal. Both
// legs are idempotent: revoking an email that is not an admin, or that has
// no principal at all, is not an error.
func (r *Registry) RevokeAdmin(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return ErrMalformedInput
	}

	lock := r.emailLock(email)
	lock.Lock()
	defer lock.Unlock()

	if err := r.repo.AdminRegistry().RemoveByEmail(ctx, email); err != nil {
		return WrapStoreError(err)
	}

	user, err := r.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil
		}
		return WrapStoreError(err)
	}

	if user.Role == RoleAdmin {
		if _, err := r.repo.Users().UpdateRole(ctx, user.ID, RoleUser); err != nil {
			return WrapStoreError(err)
		}
	}

	r.logger.Info("admin revoked", "email", email)

	return nil
}

// ListAdmins returns the allowlist entries. The list equals the set of
// admin-role principals only after Reconcile has run; the two are mutated
// by different code paths.
func (r *Registry) ListAdmins(ctx context.Context) ([]*AdminEntry, error) {
	entries, err := r.repo.AdminRegistry().List(ctx)
	if err != nil {
		return nil, WrapStoreError(err)
	}
	return entries, nil
}

// IsListed reports whether an email currently holds an allowlist entry.
func (r *Registry) IsListed(ctx context.Context, email string) (bool, error) {
	_, err := r.repo.AdminRegistry().GetByEmail(ctx, NormalizeEmail(email))
	if err == nil {
		return true, nil
	}
	if repository.IsRecordNotFound(err) {
		return false, nil
	}
	return false, WrapStoreError(err)
}

// Reconcile rebuilds the allowlist from the authoritative role column,
// repairing any drift a partial grant or out-of-band mutation left behind.
func (r *Registry) Reconcile(ctx context.Context) error {
	admins, err := r.repo.Users().ListByRole(ctx, RoleAdmin)
	if err != nil {
		return WrapStoreError(err)
	}

	err = r.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := r.repo.AdminRegistry().RemoveAllTx(ctx, tx); err != nil {
			return err
		}
		for _, u := range admins {
			if _, err := r.repo.AdminRegistry().AddTx(ctx, tx, u.Email); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return WrapStoreError(err)
	}

	r.logger.Info("admin registry reconciled", "entries", len(admins))

	return nil
}

// EnsureBootstrapAdmin seeds the first administrator account. It reuses the
// grant path so the role column and the allowlist stay in step, and resets
// the password when the account already exists.
func (r *Registry) EnsureBootstrapAdmin(ctx context.Context, email, name, password string) (*User, error) {
	user, err := r.GrantAdmin(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if name != "" && user.Name == "" {
		user.Name = name
		if _, err := r.repo.Users().Update(ctx, user); err != nil {
			return nil, WrapStoreError(err)
		}
	}

	return user, nil
}

func (r *Registry) ensureUser(ctx context.Context, email, initialPassword string) (*User, error) {
	user, err := r.repo.Users().GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, WrapStoreError(err)
	}

	if initialPassword == "" {
		return nil, errors.New("an initial password is required to create the admin account", errors.CategoryValidation).
			WithTextCode(TextCodeMalformedInput)
	}

	hash, err := HashPassword(initialPassword)
	if err != nil {
		return nil, err
	}

	user, err = r.repo.Users().Register(ctx, &User{
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
	})
	if err != nil {
		return nil, WrapStoreError(err)
	}

	return user, nil
}

func (r *Registry) partialFailure(email string, completed []GrantStep, failed GrantStep, cause error) error {
	pge := &PartialGrantError{
		Email:     email,
		Completed: completed,
		Failed:    failed,
		Cause:     cause,
	}

	// operator channel gets the full detail; the HTTP layer only ever
	// sees the taxonomy error
	r.logger.Error(
		"admin grant partially applied",
		"email", email,
		"failed_step", string(failed),
		"error", cause,
	)

	return pge.Rich()
}
