package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LinkedIdentities is the store for external provider linkages
type LinkedIdentities interface {
	repository.Repository[*LinkedIdentity]

	GetByProviderSubject(ctx context.Context, provider, subjectID string) (*LinkedIdentity, error)
	GetByProviderSubjectTx(ctx context.Context, tx bun.IDB, provider, subjectID string) (*LinkedIdentity, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*LinkedIdentity, error)
	Link(ctx context.Context, link *LinkedIdentity) (*LinkedIdentity, error)
	LinkTx(ctx context.Context, tx bun.IDB, link *LinkedIdentity) (*LinkedIdentity, error)
	Unlink(ctx context.Context, userID uuid.UUID, provider string) error
}

type linkedIdentities struct {
	repository.Repository[*LinkedIdentity]
	db *bun.DB
}

var _ LinkedIdentities = (*linkedIdentities)(nil)

func NewLinkedIdentitiesRepository(db *bun.DB) LinkedIdentities {
	repo := repository.NewRepository[*LinkedIdentity](db, repository.ModelHandlers[*LinkedIdentity]{
		NewRecord: func() *LinkedIdentity { return &LinkedIdentity{} },
		GetID: func(l *LinkedIdentity) uuid.UUID {
			if l == nil {
				return uuid.Nil
			}
			return l.ID
		},
		SetID: func(l *LinkedIdentity, id uuid.UUID) {
			if l != nil {
				l.ID = id
			}
		},
	})

	return &linkedIdentities{
		Repository: repo,
		db:         db,
	}
}

func (r *linkedIdentities) GetByProviderSubject(ctx context.Context, provider, subjectID string) (*LinkedIdentity, error) {
	return r.GetByProviderSubjectTx(ctx, r.db, provider, subjectID)
}

func (r *linkedIdentities) GetByProviderSubjectTx(ctx context.Context, tx bun.IDB, provider, subjectID string) (*LinkedIdentity, error) {
	record := &LinkedIdentity{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.provider = ?", provider).
		Where("?TableAlias.provider_subject_id = ?", subjectID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"provider":   provider,
					"subject_id": subjectID,
				})
		}
		return nil, err
	}

	return record, nil
}

func (r *linkedIdentities) ListByUser(ctx context.Context, userID uuid.UUID) ([]*LinkedIdentity, error) {
	var records []*LinkedIdentity
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *linkedIdentities) Link(ctx context.Context, link *LinkedIdentity) (*LinkedIdentity, error) {
	return r.LinkTx(ctx, r.db, link)
}

// LinkTx attaches a provider linkage, reusing an existing row for the same
// (provider, subject) pair so repeat sign-ins stay idempotent.
func (r *linkedIdentities) LinkTx(ctx context.Context, tx bun.IDB, link *LinkedIdentity) (*LinkedIdentity, error) {
	existing, err := r.GetByProviderSubjectTx(ctx, tx, link.Provider, link.SubjectID)
	if err == nil {
		link.ID = existing.ID
		return r.Repository.UpdateTx(ctx, tx, link, repository.UpdateByID(existing.ID.String()))
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}

	return r.Repository.CreateTx(ctx, tx, link)
}

func (r *linkedIdentities) Unlink(ctx context.Context, userID uuid.UUID, provider string) error {
	_, err := r.db.NewDelete().
		Model((*LinkedIdentity)(nil)).
		Where("user_id = ?", userID).
		Where("provider = ?", provider).
		Exec(ctx)
	return err
}
