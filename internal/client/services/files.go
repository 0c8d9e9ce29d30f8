package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/axiomvault/internal/api"
	"github.com/dmitrijs2005/axiomvault/internal/client/client"
	"github.com/dmitrijs2005/axiomvault/internal/client/models"
	"github.com/dmitrijs2005/axiomvault/internal/client/repositories/files"
	"github.com/dmitrijs2005/axiomvault/internal/common"
	"github.com/dmitrijs2005/axiomvault/internal/cryptox"
	"github.com/dmitrijs2005/axiomvault/internal/filex"
	"github.com/dmitrijs2005/axiomvault/internal/netx"
)

const defaultFileType = "application/octet-stream"

// FileService moves encrypted blobs between the local disk and the vault.
// Plaintext never leaves this process. Every server listing refreshes a
// local catalog that Cached serves while offline.
type FileService interface {
	Upload(ctx context.Context, dek []byte, path, category string) (*api.File, error)
	Download(ctx context.Context, dek []byte, id, dir string) (string, error)
	List(ctx context.Context, req *api.ListFilesRequest) (*api.ListFilesResponse, error)
	Cached(ctx context.Context, category string) ([]*models.File, error)
	Categories(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}

type fileService struct {
	client  client.Client
	catalog files.Repository
}

func NewFileService(client client.Client, db *sql.DB) FileService {
	return &fileService{client: client, catalog: files.NewSQLiteRepository(db)}
}

func fileToModel(f *api.File) *models.File {
	return &models.File{
		ID:           f.ID,
		Category:     f.Category,
		FileName:     f.FileName,
		FileType:     f.FileType,
		FileSize:     f.FileSize,
		UploadStatus: f.UploadStatus,
		CreatedAt:    f.CreatedAt,
	}
}

// Upload encrypts the file under the DEK, reserves quota for the
// ciphertext, transfers it and confirms the upload.
func (s *fileService) Upload(ctx context.Context, dek []byte, path, category string) (*api.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	sealed, err := cryptox.Encrypt(dek, data)
	common.WipeByteArray(data)
	if err != nil {
		return nil, fmt.Errorf("encrypt file: %w", err)
	}

	name := filepath.Base(path)
	fileType := mime.TypeByExtension(filepath.Ext(name))
	if fileType == "" {
		fileType = defaultFileType
	}

	created, err := s.client.CreateFile(ctx, &api.CreateFileRequest{
		FileName: name,
		FileType: fileType,
		Category: category,
		FileSize: int64(len(sealed)),
	})
	if err != nil {
		return nil, err
	}

	if err := netx.UploadToS3PresignedURL(ctx, created.UploadURL, sealed); err != nil {
		return nil, fmt.Errorf("upload error: %w", err)
	}

	if err := s.client.MarkUploaded(ctx, created.File.ID); err != nil {
		return nil, err
	}
	created.File.UploadStatus = models.UploadStatusCompleted

	if err := s.catalog.Upsert(ctx, fileToModel(created.File)); err != nil {
		return nil, fmt.Errorf("catalog error: %w", err)
	}
	return created.File, nil
}

// Download fetches and decrypts a file into dir and returns the written path.
func (s *fileService) Download(ctx context.Context, dek []byte, id, dir string) (string, error) {
	got, err := s.client.GetFile(ctx, id)
	if err != nil {
		return "", err
	}

	sealed, err := netx.DownloadFromS3PresignedURL(ctx, got.DownloadURL)
	if err != nil {
		return "", fmt.Errorf("download error: %w", err)
	}

	data, err := cryptox.Decrypt(dek, sealed)
	if err != nil {
		return "", fmt.Errorf("decrypt file: %w", err)
	}
	defer common.WipeByteArray(data)

	return filex.WriteDownload(dir, got.File.FileName, data)
}

func (s *fileService) List(ctx context.Context, req *api.ListFilesRequest) (*api.ListFilesResponse, error) {
	resp, err := s.client.ListFiles(ctx, req)
	if err != nil {
		return nil, err
	}

	for _, f := range resp.Files {
		if err := s.catalog.Upsert(ctx, fileToModel(f)); err != nil {
			return nil, fmt.Errorf("catalog error: %w", err)
		}
	}
	return resp, nil
}

func (s *fileService) Categories(ctx context.Context) ([]string, error) {
	return s.client.ListCategories(ctx)
}

// Cached lists the local catalog. It may be stale.
func (s *fileService) Cached(ctx context.Context, category string) ([]*models.File, error) {
	return s.catalog.List(ctx, category)
}

func (s *fileService) Delete(ctx context.Context, id string) error {
	if err := s.client.DeleteFile(ctx, id); err != nil {
		return err
	}

	// files never listed on this machine are not in the catalog
	if err := s.catalog.Delete(ctx, id); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("catalog error: %w", err)
	}
	return nil
}
