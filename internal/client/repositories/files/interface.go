package files

import (
	"context"

	"github.com/dmitrijs2005/axiomvault/internal/client/models"
)

// Repository describes the local file catalog.
type Repository interface {
	// Upsert inserts a catalog record or replaces the one with the same ID.
	Upsert(ctx context.Context, f *models.File) error

	// Delete removes a record. Missing IDs yield common.ErrorNotFound.
	Delete(ctx context.Context, id string) error

	// MarkUploaded sets UploadStatus to completed.
	MarkUploaded(ctx context.Context, id string) error

	// List returns records newest first; an empty category matches all.
	List(ctx context.Context, category string) ([]*models.File, error)

	// Clear drops the whole catalog.
	Clear(ctx context.Context) error
}
