package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/axiomvault/internal/common"
	"github.com/dmitrijs2005/axiomvault/internal/dbx"
	"github.com/dmitrijs2005/axiomvault/internal/server/models"
)

const selectColumns = `id, owner_id, category, file_name, file_type, file_size, storage_key, upload_status, created_at, updated_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern matches s literally anywhere, using ILIKE's default
// backslash escape.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// PostgresRepository implements file storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts file and fills in ID (when empty) and the timestamps.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.UploadStatus == "" {
		file.UploadStatus = models.UploadStatusPending
	}

	query := `
		INSERT INTO files (id, owner_id, category, file_name, file_type, file_size, storage_key, upload_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		file.ID, file.OwnerID, file.Category, file.FileName, file.FileType, file.FileSize, file.StorageKey, file.UploadStatus,
	).Scan(&file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id string) (*models.File, error) {
	query := `SELECT ` + selectColumns + ` FROM files WHERE id = $1 AND owner_id = $2`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

// List returns one page of the owner's files, newest first.
func (r *PostgresRepository) List(ctx context.Context, ownerID string, filter models.FileFilter, page models.Page) ([]*models.File, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + selectColumns + ` FROM files WHERE owner_id = $1`)
	args := []any{ownerID}

	add := func(cond string, v any) {
		args = append(args, v)
		fmt.Fprintf(&sb, cond, len(args))
	}

	if filter.Category != "" {
		add(` AND category = $%d`, filter.Category)
	}
	if filter.FileName != "" {
		add(` AND file_name ILIKE $%d`, containsPattern(filter.FileName))
	}
	if filter.FileType != "" {
		add(` AND file_type ILIKE $%d`, containsPattern(filter.FileType))
	}
	if filter.CreatedOn != nil {
		day := filter.CreatedOn.UTC().Truncate(24 * time.Hour)
		add(` AND created_at >= $%d`, day)
		add(` AND created_at < $%d`, day.Add(24*time.Hour))
	}

	if page.Size <= 0 {
		page.Size = 40
	}
	if page.Number <= 0 {
		page.Number = 1
	}
	sb.WriteString(` ORDER BY created_at DESC, id`)
	add(` LIMIT $%d`, page.Size)
	add(` OFFSET $%d`, (page.Number-1)*page.Size)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// TotalSize sums the sizes of every file of the owner, pending uploads included.
func (r *PostgresRepository) TotalSize(ctx context.Context, ownerID string) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(file_size), 0) FROM files WHERE owner_id = $1`
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&total); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return total, nil
}

// Categories returns the owner's distinct non-empty categories in name order.
func (r *PostgresRepository) Categories(ctx context.Context, ownerID string) ([]string, error) {
	query := `SELECT DISTINCT category FROM files WHERE owner_id = $1 AND category <> '' ORDER BY category`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkUploaded sets upload_status='completed'. Exactly one row must be affected.
func (r *PostgresRepository) MarkUploaded(ctx context.Context, ownerID, id string) error {
	query := `UPDATE files SET upload_status = 'completed', updated_at = now() WHERE id = $1 AND owner_id = $2`
	return r.execOne(ctx, query, id, ownerID)
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) error {
	query := `DELETE FROM files WHERE id = $1 AND owner_id = $2`
	return r.execOne(ctx, query, id, ownerID)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (*models.File, error) {
	f := &models.File{}
	err := s.Scan(&f.ID, &f.OwnerID, &f.Category, &f.FileName, &f.FileType, &f.FileSize,
		&f.StorageKey, &f.UploadStatus, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}
