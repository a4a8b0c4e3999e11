package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	LinkedIdentities() LinkedIdentities
	AdminRegistry() AdminEntries
}

type mngr struct {
	db               *bun.DB
	users            Users
	linkedIdentities LinkedIdentities
	adminRegistry    AdminEntries
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:               db,
		users:            NewUsersRepository(db),
		linkedIdentities: NewLinkedIdentitiesRepository(db),
		adminRegistry:    NewAdminEntriesRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.linkedIdentities == nil {
		return errors.New("repository linkedIdentities should be initialized")
	}

	if m.adminRegistry == nil {
		return errors.New("repository adminRegistry should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) LinkedIdentities() LinkedIdentities {
	return m.linkedIdentities
}

func (m mngr) AdminRegistry() AdminEntries {
	return m.adminRegistry
}
