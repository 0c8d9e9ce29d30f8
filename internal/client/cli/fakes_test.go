package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/dmitrijs2005/axiomvault/internal/api"
	"github.com/dmitrijs2005/axiomvault/internal/client/config"
	"github.com/dmitrijs2005/axiomvault/internal/client/models"
	"github.com/dmitrijs2005/axiomvault/internal/client/services"
)

// stubInputs answers text prompts from lines and password prompts from
// passwords, in order.
func stubInputs(t *testing.T, lines []string, passwords ...string) {
	t.Helper()
	origST, origGP, origNP := getSimpleText, getPassword, getNewPassword
	t.Cleanup(func() {
		getSimpleText, getPassword, getNewPassword = origST, origGP, origNP
	})

	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if len(lines) == 0 {
			return "", io.EOF
		}
		l := lines[0]
		lines = lines[1:]
		return l, nil
	}
	getPassword = func(_ io.Writer, _ string) ([]byte, error) {
		if len(passwords) == 0 {
			return nil, io.EOF
		}
		p := passwords[0]
		passwords = passwords[1:]
		return []byte(p), nil
	}
	getNewPassword = func(w io.Writer, prompt string, _ float64) ([]byte, error) {
		return getPassword(w, prompt)
	}
}

func silenceLog(t *testing.T) {
	t.Helper()
	old := log.Default().Writer()
	log.SetOutput(io.Discard)
	t.Cleanup(func() { log.SetOutput(old) })
}

func newTestApp(auth *fakeAuth) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return &App{
		config:       cfg,
		authService:  auth,
		fileService:  &fakeFiles{},
		adminService: &fakeAdmin{},
		reader:       bufio.NewReader(strings.NewReader("")),
		out:          &out,
	}, &out
}

// onlineApp returns an app with an online session.
func onlineApp(auth *fakeAuth) (*App, *bytes.Buffer) {
	a, out := newTestApp(auth)
	a.session = &services.Session{Username: "alice", DEK: []byte("dek"), Account: &api.Account{Username: "alice"}}
	a.userName = "alice"
	a.Mode = ModeOnline
	a.hasTokens = true
	return a, out
}

type fakeAuth struct {
	regUser string
	regPass []byte
	regKey  string
	regErr  error

	onlineUser    string
	onlinePass    []byte
	onlineSession *services.Session
	onlineErr     error

	offlineUser    string
	offlinePass    []byte
	offlineSession *services.Session
	offlineErr     error

	logoutCalls int

	recoverUser string
	recoverKey  string
	recoverPass []byte
	recoverErr  error

	changeCurrent []byte
	changeNew     []byte
	changeErr     error

	me    *api.Account
	meErr error

	pingErr error

	clearCalled bool
	clearErr    error
}

var _ services.AuthService = (*fakeAuth)(nil)

func (f *fakeAuth) Register(_ context.Context, user string, pass []byte) (string, error) {
	f.regUser, f.regPass = user, append([]byte(nil), pass...)
	return f.regKey, f.regErr
}

func (f *fakeAuth) OnlineLogin(_ context.Context, user string, pass []byte) (*services.Session, error) {
	f.onlineUser, f.onlinePass = user, append([]byte(nil), pass...)
	return f.onlineSession, f.onlineErr
}

func (f *fakeAuth) OfflineLogin(_ context.Context, user string, pass []byte) (*services.Session, error) {
	f.offlineUser, f.offlinePass = user, append([]byte(nil), pass...)
	return f.offlineSession, f.offlineErr
}

func (f *fakeAuth) Logout(context.Context) error { f.logoutCalls++; return nil }

func (f *fakeAuth) Recover(_ context.Context, user, key string, pass []byte) error {
	f.recoverUser, f.recoverKey, f.recoverPass = user, key, append([]byte(nil), pass...)
	return f.recoverErr
}

func (f *fakeAuth) ChangePassword(_ context.Context, current, next []byte) error {
	f.changeCurrent, f.changeNew = append([]byte(nil), current...), append([]byte(nil), next...)
	return f.changeErr
}

func (f *fakeAuth) Me(context.Context) (*api.Account, error) { return f.me, f.meErr }
func (f *fakeAuth) Ping(context.Context) error               { return f.pingErr }
func (f *fakeAuth) Close(context.Context) error              { return nil }

func (f *fakeAuth) ClearOfflineData(context.Context) error {
	f.clearCalled = true
	return f.clearErr
}

type fakeFiles struct {
	uploadPath, uploadCategory string
	uploadDEK                  []byte
	uploadErr                  error

	downloadID, downloadDir string
	downloadErr             error

	listReq *api.ListFilesRequest
	listOut *api.ListFilesResponse

	cachedCategory string
	cached         []*models.File

	categories    []string
	categoriesErr error

	deleted string
}

func (f *fakeFiles) Categories(context.Context) ([]string, error) {
	return f.categories, f.categoriesErr
}

func (f *fakeFiles) Upload(_ context.Context, dek []byte, path, category string) (*api.File, error) {
	f.uploadDEK, f.uploadPath, f.uploadCategory = dek, path, category
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &api.File{ID: "f-1", FileName: "a.txt"}, nil
}

func (f *fakeFiles) Download(_ context.Context, _ []byte, id, dir string) (string, error) {
	f.downloadID, f.downloadDir = id, dir
	return dir + "/a.txt", f.downloadErr
}

func (f *fakeFiles) List(_ context.Context, req *api.ListFilesRequest) (*api.ListFilesResponse, error) {
	f.listReq = req
	if f.listOut == nil {
		return &api.ListFilesResponse{Page: req.Page}, nil
	}
	return f.listOut, nil
}

func (f *fakeFiles) Cached(_ context.Context, category string) ([]*models.File, error) {
	f.cachedCategory = category
	return f.cached, nil
}

func (f *fakeFiles) Delete(_ context.Context, id string) error {
	f.deleted = id
	return nil
}

type fakeAdmin struct {
	locked, unlocked, planUser, plan string
	err                              error
}

func (f *fakeAdmin) Lock(_ context.Context, u string) error   { f.locked = u; return f.err }
func (f *fakeAdmin) Unlock(_ context.Context, u string) error { f.unlocked = u; return f.err }

func (f *fakeAdmin) ChangePlan(_ context.Context, u, p string) (*api.Account, error) {
	f.planUser, f.plan = u, p
	if f.err != nil {
		return nil, f.err
	}
	return &api.Account{Username: u, SubscriptionPlan: p, UploadLimitMB: 51200, DaysLeft: 365}, nil
}
