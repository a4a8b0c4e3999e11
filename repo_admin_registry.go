package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AdminEntries is the store for the admin allowlist
type AdminEntries interface {
	GetByEmail(ctx context.Context, email string) (*AdminEntry, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*AdminEntry, error)
	List(ctx context.Context) ([]*AdminEntry, error)
	Add(ctx context.Context, email string) (*AdminEntry, error)
	AddTx(ctx context.Context, tx bun.IDB, email string) (*AdminEntry, error)
	// RemoveByEmail deletes the entry for an email. Removing an absent
	// entry is not an error; revocation must stay idempotent.
	RemoveByEmail(ctx context.Context, email string) error
	RemoveByEmailTx(ctx context.Context, tx bun.IDB, email string) error
	RemoveAllTx(ctx context.Context, tx bun.IDB) error
}

type adminEntries struct {
	repository.Repository[*AdminEntry]
	db *bun.DB
}

var _ AdminEntries = (*adminEntries)(nil)

func NewAdminEntriesRepository(db *bun.DB) AdminEntries {
	repo := repository.NewRepository[*AdminEntry](db, repository.ModelHandlers[*AdminEntry]{
		NewRecord: func() *AdminEntry { return &AdminEntry{} },
		GetID: func(e *AdminEntry) uuid.UUID {
			if e == nil {
				return uuid.Nil
			}
			return e.ID
		},
		SetID: func(e *AdminEntry, id uuid.UUID) {
			if e != nil {
				e.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &adminEntries{
		Repository: repo,
		db:         db,
	}
}

func (r *adminEntries) GetByEmail(ctx context.Context, email string) (*AdminEntry, error) {
	return r.GetByEmailTx(ctx, r.db, email)
}

func (r *adminEntries) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*AdminEntry, error) {
	record := &AdminEntry{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": NormalizeEmail(email),
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *adminEntries) List(ctx context.Context) ([]*AdminEntry, error) {
	var records []*AdminEntry
	err := r.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *adminEntries) Add(ctx context.Context, email string) (*AdminEntry, error) {
	return r.AddTx(ctx, r.db, email)
}

func (r *adminEntries) AddTx(ctx context.Context, tx bun.IDB, email string) (*AdminEntry, error) {
	existing, err := r.GetByEmailTx(ctx, tx, email)
	if err == nil {
		return existing, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	record := &AdminEntry{
		ID:    uuid.New(),
		Email: NormalizeEmail(email),
	}

	return r.Repository.CreateTx(ctx, tx, record)
}

func (r *adminEntries) RemoveByEmail(ctx context.Context, email string) error {
	return r.RemoveByEmailTx(ctx, r.db, email)
}

func (r *adminEntries) RemoveByEmailTx(ctx context.Context, tx bun.IDB, email string) error {
	_, err := tx.NewDelete().
		Model((*AdminEntry)(nil)).
		Where("email = ?", NormalizeEmail(email)).
		Exec(ctx)
	return err
}

func (r *adminEntries) RemoveAllTx(ctx context.Context, tx bun.IDB) error {
	_, err := tx.NewDelete().
		Model((*AdminEntry)(nil)).
		Where("1 = 1").
		Exec(ctx)
	return err
}
