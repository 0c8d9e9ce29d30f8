package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/axiomvault/internal/dbx"
	"github.com/dmitrijs2005/axiomvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/axiomvault/internal/server/repositories/files"
	"github.com/dmitrijs2005/axiomvault/internal/server/repositories/recoverytickets"
	"github.com/dmitrijs2005/axiomvault/internal/server/repositories/refreshtokens"
)

// RepositoryManager binds repositories to a handle, either the pool or a
// transaction, so services can compose them inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	RecoveryTickets(db dbx.DBTX) recoverytickets.Repository
	Files(db dbx.DBTX) files.Repository
}
