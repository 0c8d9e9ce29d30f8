package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/axiomvault/internal/common"
	"github.com/dmitrijs2005/axiomvault/internal/dbx"
	"github.com/dmitrijs2005/axiomvault/internal/logging"
	"github.com/dmitrijs2005/axiomvault/internal/server/models"
	"github.com/dmitrijs2005/axiomvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/axiomvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/axiomvault/internal/server/storage"
	"github.com/dmitrijs2005/axiomvault/internal/timex"
)

const (
	DefaultPageSize = 40
	MaxPageSize     = 100

	bytesPerMB = 1024 * 1024
)

// CreateFileInput describes an encrypted blob the client is about to upload.
type CreateFileInput struct {
	FileName string
	FileType string
	Category string
	FileSize int64
}

// FileService manages per-account file metadata and hands out presigned
// URLs for the ciphertext.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.BlobStore
	clock       timex.Clock
	log         logging.Logger
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, store storage.BlobStore,
	clock timex.Clock, log logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: m,
		store:       store,
		clock:       clock,
		log:         log.With("module", "files"),
	}
}

// CreateFile records a pending upload and returns a presigned PUT URL. The
// owner's account row is locked while the quota is checked, so concurrent
// creates cannot together exceed upload_limit_mb.
func (s *FileService) CreateFile(ctx context.Context, ownerID string, in CreateFileInput) (*models.File, string, error) {
	if err := validateFile(in); err != nil {
		return nil, "", err
	}

	var (
		file *models.File
		url  string
	)
	err := accounts.AtomicUpdate(ctx, s.db, s.repomanager.Accounts, accounts.ByID(ownerID),
		func(ctx context.Context, tx dbx.DBTX, a *models.Account) (bool, error) {
			repo := s.repomanager.Files(tx)

			used, err := repo.TotalSize(ctx, a.ID)
			if err != nil {
				return false, err
			}
			if used+in.FileSize > a.UploadLimitMB*bytesPerMB {
				return false, common.ErrQuotaExceeded
			}

			f := &models.File{
				OwnerID:      a.ID,
				Category:     in.Category,
				FileName:     in.FileName,
				FileType:     in.FileType,
				FileSize:     in.FileSize,
				StorageKey:   storage.NewStorageKey(a.ID, s.clock.Now()),
				UploadStatus: models.UploadStatusPending,
			}
			if err := repo.Create(ctx, f); err != nil {
				return false, err
			}

			url, err = s.store.PresignPut(ctx, f.StorageKey, f.FileSize)
			if err != nil {
				return false, err
			}
			file = f
			return false, nil
		})
	switch {
	case errors.Is(err, common.ErrQuotaExceeded):
		s.log.Info(ctx, "upload refused, quota exceeded", "owner", ownerID, "size", in.FileSize)
		return nil, "", err
	case errors.Is(err, common.ErrorNotFound):
		return nil, "", common.ErrorUnauthorized
	case err != nil:
		return nil, "", transient(err)
	}
	return file, url, nil
}

// GetFile returns the metadata and, once the upload has completed, a
// presigned GET URL for the ciphertext.
func (s *FileService) GetFile(ctx context.Context, ownerID, id string) (*models.File, string, error) {
	f, err := s.repomanager.Files(s.db).GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, "", notFoundOrTransient(err)
	}
	if f.UploadStatus != models.UploadStatusCompleted {
		return f, "", nil
	}

	url, err := s.store.PresignGet(ctx, f.StorageKey)
	if err != nil {
		return nil, "", transient(err)
	}
	return f, url, nil
}

// ListFiles returns one page of the owner's files, newest first. Page size
// defaults to DefaultPageSize and is capped at MaxPageSize.
func (s *FileService) ListFiles(ctx context.Context, ownerID string, filter models.FileFilter, page models.Page) ([]*models.File, error) {
	list, err := s.repomanager.Files(s.db).List(ctx, ownerID, filter, NormalizePage(page))
	if err != nil {
		return nil, transient(err)
	}
	return list, nil
}

// ListCategories returns the categories the owner has filed uploads under.
func (s *FileService) ListCategories(ctx context.Context, ownerID string) ([]string, error) {
	list, err := s.repomanager.Files(s.db).Categories(ctx, ownerID)
	if err != nil {
		return nil, transient(err)
	}
	return list, nil
}

// MarkUploaded records that the client finished the PUT. The stored object
// must have exactly the declared size: a missing object leaves the file
// pending, a wrong-sized one is removed together with its row.
func (s *FileService) MarkUploaded(ctx context.Context, ownerID, id string) error {
	repo := s.repomanager.Files(s.db)

	f, err := repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return notFoundOrTransient(err)
	}

	size, err := s.store.Size(ctx, f.StorageKey)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return common.ErrUploadMismatch
	case err != nil:
		return transient(err)
	}

	if size != f.FileSize {
		s.log.Warn(ctx, "upload size mismatch, discarding", "owner", ownerID, "id", id,
			"declared", f.FileSize, "stored", size)
		if err := s.store.Delete(ctx, f.StorageKey); err != nil {
			return transient(err)
		}
		if err := repo.Delete(ctx, ownerID, id); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return transient(err)
		}
		return common.ErrUploadMismatch
	}

	if err := repo.MarkUploaded(ctx, ownerID, id); err != nil {
		return notFoundOrTransient(err)
	}
	return nil
}

// DeleteFile removes the object and then its metadata row.
func (s *FileService) DeleteFile(ctx context.Context, ownerID, id string) error {
	repo := s.repomanager.Files(s.db)

	f, err := repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return notFoundOrTransient(err)
	}
	if err := s.store.Delete(ctx, f.StorageKey); err != nil {
		return transient(err)
	}
	if err := repo.Delete(ctx, ownerID, id); err != nil {
		return notFoundOrTransient(err)
	}

	s.log.Info(ctx, "file deleted", "owner", ownerID, "id", id)
	return nil
}

// NormalizePage applies the paging defaults used by ListFiles.
func NormalizePage(page models.Page) models.Page {
	if page.Number < 1 {
		page.Number = 1
	}
	switch {
	case page.Size <= 0:
		page.Size = DefaultPageSize
	case page.Size > MaxPageSize:
		page.Size = MaxPageSize
	}
	return page
}

func notFoundOrTransient(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorNotFound
	}
	return transient(err)
}

func validateFile(in CreateFileInput) error {
	switch {
	case in.FileName == "":
		return &common.ValidationError{Field: "file_name", Reason: "is required"}
	case len(in.FileName) > maxFileNameLen:
		return &common.ValidationError{Field: "file_name", Reason: "is too long"}
	case len(in.FileType) > maxFileTypeLen:
		return &common.ValidationError{Field: "file_type", Reason: "is too long"}
	case len(in.Category) > maxCategoryLen:
		return &common.ValidationError{Field: "category", Reason: fmt.Sprintf("must be at most %d characters", maxCategoryLen)}
	case in.FileSize <= 0:
		return &common.ValidationError{Field: "file_size", Reason: "must be positive"}
	}
	return nil
}
