package recoverytickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/axiomvault/internal/common"
	"github.com/dmitrijs2005/axiomvault/internal/dbx"
	"github.com/dmitrijs2005/axiomvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, userID string, tokenHash []byte, expires time.Time) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM recovery_tickets WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	query := `
		INSERT INTO recovery_tickets (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, tokenHash, userID, expires); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Consume(ctx context.Context, tokenHash []byte) (*models.RecoveryTicket, error) {
	query := `
		DELETE FROM recovery_tickets
		WHERE token_hash = $1
		RETURNING user_id, expires_at
	`
	t := &models.RecoveryTicket{}
	if err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(&t.UserID, &t.Expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}
