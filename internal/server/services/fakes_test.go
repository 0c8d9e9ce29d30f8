package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/axiomvault/internal/common"
	"github.com/dmitrijs2005/axiomvault/internal/dbx"
	"github.com/dmitrijs2005/axiomvault/internal/logging"
	"github.com/dmitrijs2005/axiomvault/internal/server/config"
	"github.com/dmitrijs2005/axiomvault/internal/server/models"
	"github.com/dmitrijs2005/axiomvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/axiomvault/internal/server/repositories/files"
	"github.com/dmitrijs2005/axiomvault/internal/server/repositories/recoverytickets"
	"github.com/dmitrijs2005/axiomvault/internal/server/repositories/refreshtokens"
)

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeAccounts keeps accounts in memory. Reads return copies, so changes only
// stick after Update, like a real row.
type fakeAccounts struct {
	mu      sync.Mutex
	byID    map[string]*models.Account
	err     error
	updates int
}

func (f *fakeAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, x := range f.byID {
		if x.Username == a.Username {
			return nil, common.ErrorAlreadyExists
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	c := *a
	f.byID[a.ID] = &c
	return a, nil
}

func (f *fakeAccounts) get(match func(*models.Account) bool) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, a := range f.byID {
		if match(a) {
			c := *a
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	return f.get(func(a *models.Account) bool { return a.ID == id })
}

func (f *fakeAccounts) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	return f.get(func(a *models.Account) bool { return a.Username == username })
}

func (f *fakeAccounts) GetByIDForUpdate(ctx context.Context, id string) (*models.Account, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeAccounts) GetByUsernameForUpdate(ctx context.Context, username string) (*models.Account, error) {
	return f.GetByUsername(ctx, username)
}

func (f *fakeAccounts) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := f.GetByUsername(ctx, username)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (f *fakeAccounts) Update(_ context.Context, a *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.byID[a.ID]; !ok {
		return common.ErrorNotFound
	}
	c := *a
	f.byID[a.ID] = &c
	f.updates++
	return nil
}

// stored returns the persisted state of username.
func (f *fakeAccounts) stored(t *testing.T, username string) *models.Account {
	t.Helper()
	a, err := f.get(func(a *models.Account) bool { return a.Username == username })
	require.NoError(t, err)
	return a
}

type fakeRefreshTokens struct {
	mu     sync.Mutex
	tokens map[string]models.RefreshToken
	err    error
}

func (f *fakeRefreshTokens) Create(_ context.Context, userID, token string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.tokens[token] = models.RefreshToken{UserID: userID, Token: token, Expires: expires}
	return nil
}

func (f *fakeRefreshTokens) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (f *fakeRefreshTokens) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	return f.err
}

func (f *fakeRefreshTokens) DeleteByUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for k, t := range f.tokens {
		if t.UserID == userID {
			delete(f.tokens, k)
		}
	}
	return nil
}

func (f *fakeRefreshTokens) countFor(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tokens {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

type fakeTickets struct {
	mu      sync.Mutex
	tickets map[string]models.RecoveryTicket
	err     error

	// consumedOutsideTx counts Consume calls made on the *sql.DB handle,
	// which survive a rolled-back transaction.
	consumedOutsideTx int
}

func (f *fakeTickets) Create(_ context.Context, userID string, tokenHash []byte, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for k, t := range f.tickets {
		if t.UserID == userID {
			delete(f.tickets, k)
		}
	}
	f.tickets[string(tokenHash)] = models.RecoveryTicket{UserID: userID, Expires: expires}
	return nil
}

func (f *fakeTickets) Consume(_ context.Context, tokenHash []byte) (*models.RecoveryTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tickets[string(tokenHash)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.tickets, string(tokenHash))
	return &t, nil
}

type fakeFiles struct {
	mu    sync.Mutex
	files map[string]*models.File
	clock *testClock
	err   error
}

func (f *fakeFiles) Create(_ context.Context, file *models.File) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	file.CreatedAt = f.clock.Now()
	file.UpdatedAt = file.CreatedAt
	c := *file
	f.files[file.ID] = &c
	return nil
}

func (f *fakeFiles) GetByID(_ context.Context, ownerID, id string) (*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	x, ok := f.files[id]
	if !ok || x.OwnerID != ownerID {
		return nil, common.ErrorNotFound
	}
	c := *x
	return &c, nil
}

func (f *fakeFiles) List(_ context.Context, ownerID string, filter models.FileFilter, page models.Page) ([]*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.File
	for _, x := range f.files {
		if x.OwnerID != ownerID {
			continue
		}
		if filter.Category != "" && x.Category != filter.Category {
			continue
		}
		if filter.FileName != "" && !strings.Contains(strings.ToLower(x.FileName), strings.ToLower(filter.FileName)) {
			continue
		}
		c := *x
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	start := (page.Number - 1) * page.Size
	if start >= len(out) {
		return nil, nil
	}
	end := start + page.Size
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func (f *fakeFiles) TotalSize(_ context.Context, ownerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var total int64
	for _, x := range f.files {
		if x.OwnerID == ownerID {
			total += x.FileSize
		}
	}
	return total, nil
}

func (f *fakeFiles) Categories(_ context.Context, ownerID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	seen := map[string]bool{}
	out := []string{}
	for _, x := range f.files {
		if x.OwnerID == ownerID && x.Category != "" && !seen[x.Category] {
			seen[x.Category] = true
			out = append(out, x.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeFiles) MarkUploaded(_ context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	x, ok := f.files[id]
	if !ok || x.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	x.UploadStatus = models.UploadStatusCompleted
	return nil
}

func (f *fakeFiles) Delete(_ context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	x, ok := f.files[id]
	if !ok || x.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	delete(f.files, id)
	return nil
}

// fakeStore remembers the size each PUT was signed for and what was
// "uploaded" through put.
type fakeStore struct {
	mu      sync.Mutex
	signed  map[string]int64
	objects map[string]int64
	deleted []string
	err     error
	headErr error
}

func (s *fakeStore) PresignPut(_ context.Context, key string, size int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if s.signed == nil {
		s.signed = map[string]int64{}
	}
	s.signed[key] = size
	return "https://s3.test/put/" + key, nil
}

func (s *fakeStore) put(key string, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = map[string]int64{}
	}
	s.objects[key] = size
}

func (s *fakeStore) Size(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.headErr != nil {
		return 0, s.headErr
	}
	size, ok := s.objects[key]
	if !ok {
		return 0, common.ErrorNotFound
	}
	return size, nil
}

func (s *fakeStore) PresignGet(_ context.Context, key string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://s3.test/get/" + key, nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, key)
	delete(s.objects, key)
	return nil
}

// fakeRepoManager hands out the same in-memory repositories regardless of
// the handle, so transactions are real but storage is not.
type fakeRepoManager struct {
	accounts *fakeAccounts
	tokens   *fakeRefreshTokens
	tickets  *fakeTickets
	files    *fakeFiles
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository           { return m.accounts }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.tokens }
func (m *fakeRepoManager) RecoveryTickets(h dbx.DBTX) recoverytickets.Repository {
	_, inTx := h.(*sql.Tx)
	return &boundTickets{fakeTickets: m.tickets, inTx: inTx}
}

// boundTickets remembers which handle the repository was opened on.
type boundTickets struct {
	*fakeTickets
	inTx bool
}

func (b *boundTickets) Consume(ctx context.Context, tokenHash []byte) (*models.RecoveryTicket, error) {
	if !b.inTx {
		b.mu.Lock()
		b.consumedOutsideTx++
		b.mu.Unlock()
	}
	return b.fakeTickets.Consume(ctx, tokenHash)
}
func (m *fakeRepoManager) Files(dbx.DBTX) files.Repository { return m.files }

// env wires every service over the fakes.
type env struct {
	db       *sql.DB
	clock    *testClock
	repos    *fakeRepoManager
	store    *fakeStore
	cfg      *config.Config
	tokens   *TokenService
	auth     *AuthService
	accounts *AccountService
	recovery *RecoveryService
	admin    *AdminService
	files    *FileService
}

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newEnv(t *testing.T) *env {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := &testClock{now: testNow}
	repos := &fakeRepoManager{
		accounts: &fakeAccounts{byID: map[string]*models.Account{}},
		tokens:   &fakeRefreshTokens{tokens: map[string]models.RefreshToken{}},
		tickets:  &fakeTickets{tickets: map[string]models.RecoveryTicket{}},
		files:    &fakeFiles{files: map[string]*models.File{}, clock: clock},
	}
	store := &fakeStore{}

	cfg := &config.Config{}
	cfg.LoadDefaults()
	pc := cfg.Policy()
	log := logging.Nop{}

	tokens := NewTokenService(db, repos, cfg, clock)
	return &env{
		db:       db,
		clock:    clock,
		repos:    repos,
		store:    store,
		cfg:      cfg,
		tokens:   tokens,
		auth:     NewAuthService(db, repos, pc, tokens, clock, log),
		accounts: NewAccountService(db, repos, pc, cfg.SecretKey, clock, log),
		recovery: NewRecoveryService(db, repos, cfg, clock, log),
		admin:    NewAdminService(db, repos, pc, clock, log),
		files:    NewFileService(db, repos, store, clock, log),
	}
}

func registerInput(username string) RegisterInput {
	return RegisterInput{
		Username:             username,
		Salt:                 []byte("salt-" + username),
		KeyHash:              []byte("key-" + username),
		EncryptedDEK:         []byte("dek-" + username),
		RecoverySalt:         []byte("rsalt-" + username),
		RecoveryKeyHash:      []byte("rkey-" + username),
		RecoveryEncryptedDEK: []byte("rdek-" + username),
	}
}

func (e *env) register(t *testing.T, username string) *AccountSnapshot {
	t.Helper()
	s, err := e.accounts.Register(context.Background(), registerInput(username))
	require.NoError(t, err)
	return s
}

// mutate edits a stored account directly.
func (e *env) mutate(t *testing.T, username string, fn func(a *models.Account)) {
	t.Helper()
	a := e.repos.accounts.stored(t, username)
	fn(a)
	require.NoError(t, e.repos.accounts.Update(context.Background(), a))
}

func keyOf(username string) []byte { return []byte("key-" + username) }
