package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/axiomvault/internal/api"
	"github.com/dmitrijs2005/axiomvault/internal/client/client"
	"github.com/dmitrijs2005/axiomvault/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type credential struct {
	salt, keyHash, envelope, dek []byte
}

func newCredential(t *testing.T, password string) credential {
	t.Helper()
	salt, err := cryptox.NewSalt()
	require.NoError(t, err)
	dek, err := cryptox.NewDEK()
	require.NoError(t, err)
	kek := cryptox.DeriveKey([]byte(password), salt)
	env, err := cryptox.WrapDEK(kek, dek)
	require.NoError(t, err)
	return credential{salt: salt, keyHash: cryptox.KeyHash(kek), envelope: env, dek: dek}
}

func TestOfflineLogin_NoLocalData(t *testing.T) {
	db := setupDB(t)
	svc := NewAuthService(&fakeClient{}, db)

	_, err := svc.OfflineLogin(context.Background(), "alice", []byte("pass"))
	require.ErrorIs(t, err, client.ErrLocalDataNotAvailable)
}

func TestOfflineLogin_UsernameMismatch_Unauthorized(t *testing.T) {
	db := setupDB(t)
	c := newCredential(t, "pass")
	insertMeta(t, db, "username", []byte("other"))
	insertMeta(t, db, "salt", c.salt)
	insertMeta(t, db, "key_hash", c.keyHash)
	insertMeta(t, db, "encrypted_dek", c.envelope)

	svc := NewAuthService(&fakeClient{}, db)

	_, err := svc.OfflineLogin(context.Background(), "alice", []byte("pass"))
	require.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestOfflineLogin_WrongPassword_Unauthorized(t *testing.T) {
	db := setupDB(t)
	c := newCredential(t, "correct")
	insertMeta(t, db, "username", []byte("alice"))
	insertMeta(t, db, "salt", c.salt)
	insertMeta(t, db, "key_hash", c.keyHash)
	insertMeta(t, db, "encrypted_dek", c.envelope)

	svc := NewAuthService(&fakeClient{}, db)

	_, err := svc.OfflineLogin(context.Background(), "alice", []byte("wrong"))
	require.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestOfflineLogin_Success_ReturnsDEK(t *testing.T) {
	db := setupDB(t)
	c := newCredential(t, "pass")
	insertMeta(t, db, "username", []byte("alice"))
	insertMeta(t, db, "salt", c.salt)
	insertMeta(t, db, "key_hash", c.keyHash)
	insertMeta(t, db, "encrypted_dek", c.envelope)

	svc := NewAuthService(&fakeClient{}, db)

	got, err := svc.OfflineLogin(context.Background(), "alice", []byte("pass"))
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, c.dek, got.DEK)
	assert.Nil(t, got.Account)
}

func TestOnlineLogin_GetSaltError_Wrapped(t *testing.T) {
	db := setupDB(t)
	fc := &fakeClient{GetSaltErr: errors.New("network down")}
	svc := NewAuthService(fc, db)

	_, err := svc.OnlineLogin(context.Background(), "u", []byte("p"))
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "get salt error:"))
}

func TestOnlineLogin_LoginError_Wrapped(t *testing.T) {
	db := setupDB(t)
	fc := &fakeClient{GetSaltRet: []byte("salt-salt-salt-s"), LoginErr: &client.LockedError{MinutesLeft: 4}}
	svc := NewAuthService(fc, db)

	_, err := svc.OnlineLogin(context.Background(), "u", []byte("p"))
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "login error:"))

	var locked *client.LockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 4, locked.MinutesLeft)
}

func TestOnlineLogin_Success_SavesOfflineDataAndReturnsSession(t *testing.T) {
	db := setupDB(t)
	c := newCredential(t, "pass")
	acc := &api.Account{ID: "id-1", Username: "alice", Salt: c.salt, EncryptedDEK: c.envelope, SubscriptionPlan: "FREE"}
	fc := &fakeClient{GetSaltRet: c.salt, LoginRet: acc}
	svc := NewAuthService(fc, db)

	got, err := svc.OnlineLogin(context.Background(), "alice", []byte("pass"))
	require.NoError(t, err)

	assert.Equal(t, c.dek, got.DEK)
	assert.Same(t, acc, got.Account)
	assert.Equal(t, "alice", fc.LastLoginUser)
	assert.Equal(t, c.keyHash, fc.LastLoginKey)

	assert.Equal(t, []byte("alice"), getMeta(t, db, "username"))
	assert.Equal(t, c.salt, getMeta(t, db, "salt"))
	assert.Equal(t, c.keyHash, getMeta(t, db, "key_hash"))
	assert.Equal(t, c.envelope, getMeta(t, db, "encrypted_dek"))

	// the cache now supports an offline login
	off, err := svc.OfflineLogin(context.Background(), "alice", []byte("pass"))
	require.NoError(t, err)
	assert.Equal(t, c.dek, off.DEK)
}

func TestOnlineLogin_BadEnvelope_LogsOut(t *testing.T) {
	db := setupDB(t)
	c := newCredential(t, "pass")
	fc := &fakeClient{GetSaltRet: c.salt, LoginRet: &api.Account{EncryptedDEK: []byte("garbage-garbage-garbage-garbage")}}
	svc := NewAuthService(fc, db)

	_, err := svc.OnlineLogin(context.Background(), "alice", []byte("pass"))
	require.ErrorIs(t, err, cryptox.ErrEnvelope)
	assert.Equal(t, 1, fc.LogoutCall)
	assert.Equal(t, 0, countMeta(t, db))
}

func TestRegister_BuildsBothCredentials(t *testing.T) {
	db := setupDB(t)
	fc := &fakeClient{}
	svc := NewAuthService(fc, db)

	recoveryKey, err := svc.Register(context.Background(), "alice", []byte("pass"))
	require.NoError(t, err)
	require.NotEmpty(t, recoveryKey)

	req := fc.LastRegister
	require.NotNil(t, req)
	assert.Equal(t, "alice", req.Username)
	require.Len(t, req.Salt, cryptox.SaltSize)
	require.Len(t, req.RecoverySalt, cryptox.SaltSize)
	assert.NotEqual(t, req.Salt, req.RecoverySalt)

	kek := cryptox.DeriveKey([]byte("pass"), req.Salt)
	assert.Equal(t, cryptox.KeyHash(kek), req.KeyHash)
	dek, err := cryptox.UnwrapDEK(kek, req.EncryptedDEK)
	require.NoError(t, err)

	normalized := cryptox.NormalizeRecoveryKey(recoveryKey)
	assert.Equal(t, cryptox.RecoveryKeyHash(normalized), req.RecoveryKeyHash)
	rdek, err := cryptox.UnwrapDEK(cryptox.DeriveKey(normalized, req.RecoverySalt), req.RecoveryEncryptedDEK)
	require.NoError(t, err)
	assert.Equal(t, dek, rdek)
}

func TestRegister_ErrorFromClient(t *testing.T) {
	db := setupDB(t)
	fc := &fakeClient{RegisterErr: client.ErrAlreadyExists}
	svc := NewAuthService(fc, db)

	_, err := svc.Register(context.Background(), "u", []byte("p"))
	require.ErrorIs(t, err, client.ErrAlreadyExists)
}

func TestRecover_RewrapsSameDEK(t *testing.T) {
	db := setupDB(t)
	fc := &fakeClient{}
	svc := NewAuthService(fc, db)
	ctx := context.Background()

	recoveryKey, err := svc.Register(ctx, "alice", []byte("old"))
	require.NoError(t, err)
	reg := fc.LastRegister

	insertMeta(t, db, "username", []byte("alice"))
	fc.InitiateRet = &api.InitiateRecoveryResponse{
		RecoverySalt:         reg.RecoverySalt,
		RecoveryEncryptedDEK: reg.RecoveryEncryptedDEK,
		Ticket:               "ticket-1",
	}

	// dashes and case are irrelevant
	typed := strings.ToLower(strings.ReplaceAll(recoveryKey, "-", " "))
	require.NoError(t, svc.Recover(ctx, "alice", typed, []byte("new")))

	assert.Equal(t, "alice", fc.LastInitiateUser)
	assert.Equal(t, reg.RecoveryKeyHash, fc.LastInitiateHash)

	fin := fc.LastFinalize
	require.NotNil(t, fin)
	assert.Equal(t, "ticket-1", fin.Ticket)
	assert.NotEqual(t, reg.Salt, fin.NewSalt)

	oldDEK, err := cryptox.UnwrapDEK(cryptox.DeriveKey([]byte("old"), reg.Salt), reg.EncryptedDEK)
	require.NoError(t, err)
	newKEK := cryptox.DeriveKey([]byte("new"), fin.NewSalt)
	assert.Equal(t, cryptox.KeyHash(newKEK), fin.NewKeyHash)
	newDEK, err := cryptox.UnwrapDEK(newKEK, fin.NewEncryptedDEK)
	require.NoError(t, err)
	assert.Equal(t, oldDEK, newDEK)

	// stale offline data is dropped
	assert.Equal(t, 0, countMeta(t, db))
}

func TestRecover_InitiateError(t *testing.T) {
	db := setupDB(t)
	fc := &fakeClient{InitiateErr: client.ErrUnauthorized}
	svc := NewAuthService(fc, db)

	err := svc.Recover(context.Background(), "alice", "AAAA-BBBB", []byte("new"))
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Nil(t, fc.LastFinalize)
}

func TestRecover_WrongKeyCannotUnwrap(t *testing.T) {
	db := setupDB(t)
	fc := &fakeClient{}
	svc := NewAuthService(fc, db)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", []byte("old"))
	require.NoError(t, err)
	fc.InitiateRet = &api.InitiateRecoveryResponse{
		RecoverySalt:         fc.LastRegister.RecoverySalt,
		RecoveryEncryptedDEK: fc.LastRegister.RecoveryEncryptedDEK,
		Ticket:               "t",
	}

	err = svc.Recover(ctx, "alice", "WRONG-KEY", []byte("new"))
	require.ErrorIs(t, err, cryptox.ErrEnvelope)
	assert.Nil(t, fc.LastFinalize)
}

func TestChangePassword(t *testing.T) {
	db := setupDB(t)
	c := newCredential(t, "old")
	fc := &fakeClient{MeRet: &api.Account{Username: "alice", Salt: c.salt, EncryptedDEK: c.envelope}}
	svc := NewAuthService(fc, db)

	require.NoError(t, svc.ChangePassword(context.Background(), []byte("old"), []byte("new")))

	req := fc.LastChangeKey
	require.NotNil(t, req)
	assert.Equal(t, c.keyHash, req.CurrentKeyHash)

	kek := cryptox.DeriveKey([]byte("new"), req.NewSalt)
	assert.Equal(t, cryptox.KeyHash(kek), req.NewKeyHash)
	dek, err := cryptox.UnwrapDEK(kek, req.NewEncryptedDEK)
	require.NoError(t, err)
	assert.Equal(t, c.dek, dek)

	assert.Equal(t, 1, fc.LogoutCall)
	assert.Equal(t, req.NewSalt, getMeta(t, db, "salt"))
	assert.Equal(t, req.NewKeyHash, getMeta(t, db, "key_hash"))
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	db := setupDB(t)
	c := newCredential(t, "old")
	fc := &fakeClient{MeRet: &api.Account{Username: "alice", Salt: c.salt, EncryptedDEK: c.envelope}}
	svc := NewAuthService(fc, db)

	err := svc.ChangePassword(context.Background(), []byte("nope"), []byte("new"))
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Nil(t, fc.LastChangeKey)
}

func TestChangePassword_ServerRejects(t *testing.T) {
	db := setupDB(t)
	c := newCredential(t, "old")
	fc := &fakeClient{
		MeRet:        &api.Account{Username: "alice", Salt: c.salt, EncryptedDEK: c.envelope},
		ChangeKeyErr: client.ErrForbidden,
	}
	svc := NewAuthService(fc, db)

	err := svc.ChangePassword(context.Background(), []byte("old"), []byte("new"))
	require.ErrorIs(t, err, client.ErrForbidden)
	assert.Equal(t, 0, fc.LogoutCall)
	assert.Equal(t, 0, countMeta(t, db))
}

func TestLogout_KeepsOfflineData(t *testing.T) {
	db := setupDB(t)
	insertMeta(t, db, "username", []byte("alice"))
	fc := &fakeClient{}
	svc := NewAuthService(fc, db)

	require.NoError(t, svc.Logout(context.Background()))
	assert.Equal(t, 1, fc.LogoutCall)
	assert.Equal(t, 1, countMeta(t, db))
}

func TestPing_Close_ClearOfflineData_Delegations(t *testing.T) {
	db := setupDB(t)
	insertMeta(t, db, "x", []byte("y"))

	fc := &fakeClient{MeRet: &api.Account{Username: "alice"}}
	svc := NewAuthService(fc, db)

	require.NoError(t, svc.Ping(context.Background()))
	require.NoError(t, svc.Close(context.Background()))

	me, err := svc.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)

	require.NoError(t, svc.ClearOfflineData(context.Background()))
	assert.Equal(t, 0, countMeta(t, db))
}

func TestPing_ErrorPropagates(t *testing.T) {
	db := setupDB(t)
	svc := NewAuthService(&fakeClient{PingErr: client.ErrUnavailable}, db)
	require.ErrorIs(t, svc.Ping(context.Background()), client.ErrUnavailable)
}

func TestClose_ErrorPropagates(t *testing.T) {
	db := setupDB(t)
	svc := NewAuthService(&fakeClient{CloseErr: errors.New("io")}, db)
	require.Error(t, svc.Close(context.Background()))
}

func TestSession_Wipe(t *testing.T) {
	s := &Session{DEK: []byte{1, 2, 3}}
	s.Wipe()
	assert.Equal(t, []byte{0, 0, 0}, s.DEK)

	var nilSession *Session
	assert.NotPanics(t, nilSession.Wipe)
}

func TestOnlineLogin_OtherUserDropsCatalog(t *testing.T) {
	db := setupDB(t)
	_, err := db.Exec(`INSERT INTO files(id, file_name, file_size, upload_status, created_at) VALUES ('f', 'x', 1, 'completed', 0)`)
	require.NoError(t, err)
	insertMeta(t, db, "username", []byte("bob"))

	c := newCredential(t, "pass")
	fc := &fakeClient{GetSaltRet: c.salt, LoginRet: &api.Account{Username: "alice", EncryptedDEK: c.envelope}}
	svc := NewAuthService(fc, db)

	_, err = svc.OnlineLogin(context.Background(), "alice", []byte("pass"))
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&n))
	assert.Equal(t, 0, n)
	assert.Equal(t, []byte("alice"), getMeta(t, db, "username"))
}

func TestOnlineLogin_SameUserKeepsCatalog(t *testing.T) {
	db := setupDB(t)
	_, err := db.Exec(`INSERT INTO files(id, file_name, file_size, upload_status, created_at) VALUES ('f', 'x', 1, 'completed', 0)`)
	require.NoError(t, err)
	insertMeta(t, db, "username", []byte("alice"))

	c := newCredential(t, "pass")
	fc := &fakeClient{GetSaltRet: c.salt, LoginRet: &api.Account{Username: "alice", EncryptedDEK: c.envelope}}
	svc := NewAuthService(fc, db)

	_, err = svc.OnlineLogin(context.Background(), "alice", []byte("pass"))
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&n))
	assert.Equal(t, 1, n)
}
