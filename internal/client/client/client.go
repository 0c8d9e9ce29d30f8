package client

import (
	"context"

	"github.com/dmitrijs2005/axiomvault/internal/api"
)

// Client is the subset of the Vault API the CLI services depend on.
type Client interface {
	Close() error
	Ping(ctx context.Context) error

	Register(ctx context.Context, req *api.RegisterRequest) (*api.Account, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, keyHash []byte) (*api.Account, error)
	Logout()
	Me(ctx context.Context) (*api.Account, error)
	ChangeKey(ctx context.Context, req *api.ChangeKeyRequest) error

	InitiateRecovery(ctx context.Context, username string, recoveryKeyHash []byte) (*api.InitiateRecoveryResponse, error)
	FinalizeRecovery(ctx context.Context, req *api.FinalizeRecoveryRequest) error

	LockAccount(ctx context.Context, username string) error
	UnlockAccount(ctx context.Context, username string) error
	ChangePlan(ctx context.Context, username, plan string) (*api.Account, error)

	CreateFile(ctx context.Context, req *api.CreateFileRequest) (*api.CreateFileResponse, error)
	GetFile(ctx context.Context, id string) (*api.GetFileResponse, error)
	ListFiles(ctx context.Context, req *api.ListFilesRequest) (*api.ListFilesResponse, error)
	MarkUploaded(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]string, error)
	DeleteFile(ctx context.Context, id string) error
}
