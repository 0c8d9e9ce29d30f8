package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/axiomvault/internal/common"
	"github.com/dmitrijs2005/axiomvault/internal/dbx"
	"github.com/dmitrijs2005/axiomvault/internal/server/models"
)

const selectColumns = `SELECT id, username, salt, key_hash, encrypted_dek,
		recovery_salt, recovery_key_hash, recovery_encrypted_dek,
		is_locked, lockout_until, failed_login_attempts,
		subscription_plan, subscription_expiry, upload_limit_mb,
		is_staff, is_admin, created_at
	FROM accounts`

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create assigns a fresh UUID when the account has none and inserts the
// whole record in a single statement.
func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	query := `
		INSERT INTO accounts (id, username, salt, key_hash, encrypted_dek,
			recovery_salt, recovery_key_hash, recovery_encrypted_dek,
			is_locked, lockout_until, failed_login_attempts,
			subscription_plan, subscription_expiry, upload_limit_mb,
			is_staff, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		a.ID, a.Username, a.Salt, a.KeyHash, a.EncryptedDEK,
		a.RecoverySalt, a.RecoveryKeyHash, a.RecoveryEncryptedDEK,
		a.IsLocked, a.LockoutUntil, a.FailedLoginAttempts,
		string(a.SubscriptionPlan), a.SubscriptionExpiry, a.UploadLimitMB,
		a.IsStaff, a.IsAdmin,
	).Scan(&a.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.getOne(ctx, selectColumns+` WHERE username = $1`, username)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Account, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) GetByUsernameForUpdate(ctx context.Context, username string) (*models.Account, error) {
	return r.getOne(ctx, selectColumns+` WHERE username = $1 FOR UPDATE`, username)
}

func (r *PostgresRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Update(ctx context.Context, a *models.Account) error {
	query := `
		UPDATE accounts SET
			salt = $2, key_hash = $3, encrypted_dek = $4,
			recovery_salt = $5, recovery_key_hash = $6, recovery_encrypted_dek = $7,
			is_locked = $8, lockout_until = $9, failed_login_attempts = $10,
			subscription_plan = $11, subscription_expiry = $12, upload_limit_mb = $13,
			is_staff = $14, is_admin = $15
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		a.ID, a.Salt, a.KeyHash, a.EncryptedDEK,
		a.RecoverySalt, a.RecoveryKeyHash, a.RecoveryEncryptedDEK,
		a.IsLocked, a.LockoutUntil, a.FailedLoginAttempts,
		string(a.SubscriptionPlan), a.SubscriptionExpiry, a.UploadLimitMB,
		a.IsStaff, a.IsAdmin,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	var (
		a            models.Account
		plan         string
		lockoutUntil sql.NullTime
		expiry       sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Username, &a.Salt, &a.KeyHash, &a.EncryptedDEK,
		&a.RecoverySalt, &a.RecoveryKeyHash, &a.RecoveryEncryptedDEK,
		&a.IsLocked, &lockoutUntil, &a.FailedLoginAttempts,
		&plan, &expiry, &a.UploadLimitMB,
		&a.IsStaff, &a.IsAdmin, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	a.SubscriptionPlan = models.Plan(plan)
	if lockoutUntil.Valid {
		t := lockoutUntil.Time
		a.LockoutUntil = &t
	}
	if expiry.Valid {
		t := expiry.Time
		a.SubscriptionExpiry = &t
	}

	return &a, nil
}
