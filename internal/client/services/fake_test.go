package services

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/dmitrijs2005/axiomvault/internal/api"
	"github.com/dmitrijs2005/axiomvault/internal/client/client"
	"github.com/stretchr/testify/require"
)

// ---- helpers ----

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := client.InitDatabase(context.Background(), "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insertMeta(t *testing.T, db *sql.DB, k string, v []byte) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO metadata(key,value) VALUES(?,?)`, k, v)
	require.NoError(t, err)
}

func getMeta(t *testing.T, db *sql.DB, k string) []byte {
	t.Helper()
	var v []byte
	err := db.QueryRow(`SELECT value FROM metadata WHERE key=?`, k).Scan(&v)
	require.NoError(t, err)
	return v
}

func countMeta(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM metadata`).Scan(&n))
	return n
}

// ---- fake client ----

// fakeClient implements client.Client for service unit tests.
type fakeClient struct {
	CloseErr    error
	PingErr     error
	RegisterErr error

	GetSaltRet []byte
	GetSaltErr error

	LoginRet   *api.Account
	LoginErr   error
	LogoutCall int

	MeRet *api.Account
	MeErr error

	ChangeKeyErr error

	InitiateRet *api.InitiateRecoveryResponse
	InitiateErr error
	FinalizeErr error

	AdminErr      error
	ChangePlanRet *api.Account

	CreateFileRet   *api.CreateFileResponse
	CreateFileErr   error
	GetFileRet      *api.GetFileResponse
	GetFileErr      error
	ListFilesRet    *api.ListFilesResponse
	MarkUploadedErr error
	DeleteFileErr   error
	CategoriesRet   []string

	LastRegister     *api.RegisterRequest
	LastGetSaltUser  string
	LastLoginUser    string
	LastLoginKey     []byte
	LastChangeKey    *api.ChangeKeyRequest
	LastInitiateUser string
	LastInitiateHash []byte
	LastFinalize     *api.FinalizeRecoveryRequest
	LastLocked       string
	LastUnlocked     string
	LastPlan         string
	LastCreateFile   *api.CreateFileRequest
	LastListFiles    *api.ListFilesRequest
	LastMarked       string
	LastDeleted      string
}

var _ client.Client = (*fakeClient)(nil)

func (f *fakeClient) Close() error                   { return f.CloseErr }
func (f *fakeClient) Ping(ctx context.Context) error { return f.PingErr }

func (f *fakeClient) Register(ctx context.Context, req *api.RegisterRequest) (*api.Account, error) {
	f.LastRegister = req
	if f.RegisterErr != nil {
		return nil, f.RegisterErr
	}
	return &api.Account{Username: req.Username, SubscriptionPlan: "FREE"}, nil
}

func (f *fakeClient) GetSalt(ctx context.Context, username string) ([]byte, error) {
	f.LastGetSaltUser = username
	return append([]byte(nil), f.GetSaltRet...), f.GetSaltErr
}

func (f *fakeClient) Login(ctx context.Context, username string, keyHash []byte) (*api.Account, error) {
	f.LastLoginUser = username
	f.LastLoginKey = append([]byte(nil), keyHash...)
	return f.LoginRet, f.LoginErr
}

func (f *fakeClient) Logout() { f.LogoutCall++ }

func (f *fakeClient) Me(ctx context.Context) (*api.Account, error) { return f.MeRet, f.MeErr }

func (f *fakeClient) ChangeKey(ctx context.Context, req *api.ChangeKeyRequest) error {
	f.LastChangeKey = req
	return f.ChangeKeyErr
}

func (f *fakeClient) InitiateRecovery(ctx context.Context, username string, recoveryKeyHash []byte) (*api.InitiateRecoveryResponse, error) {
	f.LastInitiateUser = username
	f.LastInitiateHash = recoveryKeyHash
	return f.InitiateRet, f.InitiateErr
}

func (f *fakeClient) FinalizeRecovery(ctx context.Context, req *api.FinalizeRecoveryRequest) error {
	f.LastFinalize = req
	return f.FinalizeErr
}

func (f *fakeClient) LockAccount(ctx context.Context, username string) error {
	f.LastLocked = username
	return f.AdminErr
}

func (f *fakeClient) UnlockAccount(ctx context.Context, username string) error {
	f.LastUnlocked = username
	return f.AdminErr
}

func (f *fakeClient) ChangePlan(ctx context.Context, username, plan string) (*api.Account, error) {
	f.LastPlan = plan
	return f.ChangePlanRet, f.AdminErr
}

func (f *fakeClient) CreateFile(ctx context.Context, req *api.CreateFileRequest) (*api.CreateFileResponse, error) {
	f.LastCreateFile = req
	return f.CreateFileRet, f.CreateFileErr
}

func (f *fakeClient) GetFile(ctx context.Context, id string) (*api.GetFileResponse, error) {
	return f.GetFileRet, f.GetFileErr
}

func (f *fakeClient) ListFiles(ctx context.Context, req *api.ListFilesRequest) (*api.ListFilesResponse, error) {
	f.LastListFiles = req
	return f.ListFilesRet, nil
}

func (f *fakeClient) ListCategories(ctx context.Context) ([]string, error) {
	return f.CategoriesRet, nil
}

func (f *fakeClient) MarkUploaded(ctx context.Context, id string) error {
	f.LastMarked = id
	return f.MarkUploadedErr
}

func (f *fakeClient) DeleteFile(ctx context.Context, id string) error {
	f.LastDeleted = id
	return f.DeleteFileErr
}
