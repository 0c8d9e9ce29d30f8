package accounts

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/axiomvault/internal/dbx"
	"github.com/dmitrijs2005/axiomvault/internal/server/models"
)

// Lookup selects the row an atomic update works on. It must use a ForUpdate
// read so concurrent updates of the same account serialize.
type Lookup func(ctx context.Context, r Repository) (*models.Account, error)

// ByUsername locks the account with the given username.
func ByUsername(username string) Lookup {
	return func(ctx context.Context, r Repository) (*models.Account, error) {
		return r.GetByUsernameForUpdate(ctx, username)
	}
}

// ByID locks the account with the given id.
func ByID(id string) Lookup {
	return func(ctx context.Context, r Repository) (*models.Account, error) {
		return r.GetByIDForUpdate(ctx, id)
	}
}

// Mutator edits the locked account in place and reports whether it must be
// written back. tx lets it touch other tables in the same transaction.
// Returning an error rolls everything back.
type Mutator func(ctx context.Context, tx dbx.DBTX, a *models.Account) (bool, error)

// AtomicUpdate runs lookup, fn and, when fn asks for it, Update inside one
// transaction. repo binds the repository to the transaction handle.
func AtomicUpdate(ctx context.Context, db *sql.DB, repo func(dbx.DBTX) Repository, lookup Lookup, fn Mutator) error {
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := repo(tx)

		a, err := lookup(ctx, r)
		if err != nil {
			return err
		}

		persist, err := fn(ctx, tx, a)
		if err != nil {
			return err
		}
		if !persist {
			return nil
		}
		return r.Update(ctx, a)
	})
}
