// Package accounts is the credential store: persistence of account records
// and the atomic read-modify-write used by every authentication flow.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/axiomvault/internal/server/models"
)

// Repository defines the account persistence contract.
type Repository interface {
	// Create inserts the full record. A taken username yields common.ErrorAlreadyExists.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	// GetByID and GetByUsername return common.ErrorNotFound for unknown keys.
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)

	// The ForUpdate variants also lock the row until the surrounding
	// transaction ends. Outside a transaction they behave like the plain reads.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Account, error)
	GetByUsernameForUpdate(ctx context.Context, username string) (*models.Account, error)

	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// Update writes every mutable column of the account identified by ID.
	Update(ctx context.Context, account *models.Account) error
}
