package files

import (
	"context"

	"github.com/dmitrijs2005/axiomvault/internal/server/models"
)

// Repository stores per-owner metadata of encrypted blobs. Every read and
// write is scoped to the owner; rows of other owners behave as absent.
type Repository interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, ownerID, id string) (*models.File, error)
	List(ctx context.Context, ownerID string, filter models.FileFilter, page models.Page) ([]*models.File, error)
	TotalSize(ctx context.Context, ownerID string) (int64, error)
	Categories(ctx context.Context, ownerID string) ([]string, error)
	MarkUploaded(ctx context.Context, ownerID, id string) error
	Delete(ctx context.Context, ownerID, id string) error
}
