// Package recoverytickets stores the single-use tickets that bind the two
// phases of account recovery. Only a hash of each ticket is persisted.
package recoverytickets

import (
	"context"
	"time"

	"github.com/dmitrijs2005/axiomvault/internal/server/models"
)

type Repository interface {
	// Create stores tokenHash for userID until expires, replacing any
	// earlier ticket of the same user.
	Create(ctx context.Context, userID string, tokenHash []byte, expires time.Time) error

	// Consume deletes the ticket and returns it. Unknown hashes yield
	// common.ErrorNotFound. A ticket can be consumed once.
	Consume(ctx context.Context, tokenHash []byte) (*models.RecoveryTicket, error)
}
