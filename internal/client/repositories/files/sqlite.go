package files

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/axiomvault/internal/client/models"
	"github.com/dmitrijs2005/axiomvault/internal/common"
	"github.com/dmitrijs2005/axiomvault/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, f *models.File) error {

	query := `INSERT INTO files (id, category, file_name, file_type, file_size, upload_status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				category = excluded.category,
				file_name = excluded.file_name,
				file_type = excluded.file_type,
				file_size = excluded.file_size,
				upload_status = excluded.upload_status,
				created_at = excluded.created_at
	`
	_, err := r.db.ExecContext(ctx, query, f.ID, f.Category, f.FileName, f.FileType, f.FileSize, f.UploadStatus, f.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return expectOne(result)
}

func (r *SQLiteRepository) MarkUploaded(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE files SET upload_status = ? WHERE id = ?`, models.UploadStatusCompleted, id)
	if err != nil {
		return fmt.Errorf("failed to mark file uploaded: %w", err)
	}
	return expectOne(result)
}

func (r *SQLiteRepository) List(ctx context.Context, category string) ([]*models.File, error) {

	query := `SELECT id, category, file_name, file_type, file_size, upload_status, created_at
			FROM files WHERE (? = '' OR category = ?) ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query, category, category)
	if err != nil {
		return nil, fmt.Errorf("error selecting files: %w", err)
	}
	defer rows.Close()

	var result []*models.File

	for rows.Next() {
		var (
			item    = &models.File{}
			created int64
		)
		err := rows.Scan(&item.ID, &item.Category, &item.FileName, &item.FileType, &item.FileSize, &item.UploadStatus, &created)
		if err != nil {
			return nil, err
		}
		item.CreatedAt = time.UnixMilli(created).UTC()
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM files`); err != nil {
		return fmt.Errorf("failed to clear files: %w", err)
	}
	return nil
}

func expectOne(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected != 1 {
		return common.ErrorNotFound
	}
	return nil
}
