// Package services contains the CLI's application services. The auth
// service runs the client half of the zero-knowledge scheme: key
// derivation, DEK wrapping, recovery and the offline-login cache. The file
// service encrypts blobs with the session DEK before they leave the machine.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/axiomvault/internal/api"
	"github.com/dmitrijs2005/axiomvault/internal/client/client"
	"github.com/dmitrijs2005/axiomvault/internal/client/repositories/files"
	"github.com/dmitrijs2005/axiomvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/axiomvault/internal/common"
	"github.com/dmitrijs2005/axiomvault/internal/cryptox"
	"github.com/dmitrijs2005/axiomvault/internal/dbx"
)

// Offline cache keys.
const (
	metaUsername     = "username"
	metaSalt         = "salt"
	metaKeyHash      = "key_hash"
	metaEncryptedDEK = "encrypted_dek"
)

// Session is an unlocked vault. Account is nil after an offline login.
type Session struct {
	Username string
	DEK      []byte
	Account  *api.Account
}

// Wipe zeroes the DEK.
func (s *Session) Wipe() {
	if s != nil {
		common.WipeByteArray(s.DEK)
	}
}

// AuthService defines authentication operations for the CLI.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Register(ctx context.Context, username string, password []byte) (recoveryKey string, err error)
	OnlineLogin(ctx context.Context, username string, password []byte) (*Session, error)
	OfflineLogin(ctx context.Context, username string, password []byte) (*Session, error)
	Logout(ctx context.Context) error
	Recover(ctx context.Context, username, recoveryKey string, newPassword []byte) error
	ChangePassword(ctx context.Context, current, newPassword []byte) error
	Me(ctx context.Context) (*api.Account, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	ClearOfflineData(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(client client.Client, db *sql.DB) AuthService {
	return &authService{client: client, db: db}
}

// mainCredential is what the server stores for the password path.
type mainCredential struct {
	salt         []byte
	keyHash      []byte
	encryptedDEK []byte
}

func newMainCredential(password, dek []byte) (*mainCredential, error) {
	salt, err := cryptox.NewSalt()
	if err != nil {
		return nil, err
	}
	kek := cryptox.DeriveKey(password, salt)
	defer common.WipeByteArray(kek)

	env, err := cryptox.WrapDEK(kek, dek)
	if err != nil {
		return nil, err
	}
	return &mainCredential{salt: salt, keyHash: cryptox.KeyHash(kek), encryptedDEK: env}, nil
}

// Register generates the DEK and both credentials locally, registers the
// account and returns the recovery key. The recovery key is shown once and
// never stored.
func (a *authService) Register(ctx context.Context, username string, password []byte) (string, error) {
	dek, err := cryptox.NewDEK()
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(dek)

	main, err := newMainCredential(password, dek)
	if err != nil {
		return "", err
	}

	recoveryKey, err := cryptox.GenerateRecoveryKey()
	if err != nil {
		return "", err
	}
	normalized := cryptox.NormalizeRecoveryKey(recoveryKey)
	defer common.WipeByteArray(normalized)

	recoverySalt, err := cryptox.NewSalt()
	if err != nil {
		return "", err
	}
	recoveryKEK := cryptox.DeriveKey(normalized, recoverySalt)
	defer common.WipeByteArray(recoveryKEK)

	recoveryEnv, err := cryptox.WrapDEK(recoveryKEK, dek)
	if err != nil {
		return "", err
	}

	_, err = a.client.Register(ctx, &api.RegisterRequest{
		Username:             username,
		Salt:                 main.salt,
		KeyHash:              main.keyHash,
		EncryptedDEK:         main.encryptedDEK,
		RecoverySalt:         recoverySalt,
		RecoveryKeyHash:      cryptox.RecoveryKeyHash(normalized),
		RecoveryEncryptedDEK: recoveryEnv,
	})
	if err != nil {
		return "", err
	}
	return recoveryKey, nil
}

// OnlineLogin authenticates against the server, unwraps the DEK, caches
// what an offline login needs and returns the session.
func (a *authService) OnlineLogin(ctx context.Context, username string, password []byte) (*Session, error) {
	salt, err := a.client.GetSalt(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get salt error: %w", err)
	}

	kek := cryptox.DeriveKey(password, salt)
	defer common.WipeByteArray(kek)
	keyHash := cryptox.KeyHash(kek)

	acc, err := a.client.Login(ctx, username, keyHash)
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	dek, err := cryptox.UnwrapDEK(kek, acc.EncryptedDEK)
	if err != nil {
		a.client.Logout()
		return nil, fmt.Errorf("unwrap key: %w", err)
	}

	cred := &mainCredential{salt: salt, keyHash: keyHash, encryptedDEK: acc.EncryptedDEK}
	if err := a.saveOfflineData(ctx, username, cred); err != nil {
		return nil, fmt.Errorf("offline data saving error: %w", err)
	}
	return &Session{Username: username, DEK: dek, Account: acc}, nil
}

// OfflineLogin verifies the password against the cached key hash and
// unwraps the cached DEK. Missing cache data yields
// client.ErrLocalDataNotAvailable and a mismatch client.ErrUnauthorized.
func (a *authService) OfflineLogin(ctx context.Context, username string, password []byte) (*Session, error) {
	cached, err := metadata.NewSQLiteRepository(a.db).GetMany(ctx, metaUsername, metaSalt, metaKeyHash, metaEncryptedDEK)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, client.ErrLocalDataNotAvailable
		}
		return nil, err
	}
	if string(cached[metaUsername]) != username {
		return nil, client.ErrUnauthorized
	}

	kek := cryptox.DeriveKey(password, cached[metaSalt])
	defer common.WipeByteArray(kek)

	if subtle.ConstantTimeCompare(cached[metaKeyHash], cryptox.KeyHash(kek)) == 0 {
		return nil, client.ErrUnauthorized
	}

	dek, err := cryptox.UnwrapDEK(kek, cached[metaEncryptedDEK])
	if err != nil {
		return nil, fmt.Errorf("unwrap key: %w", err)
	}
	return &Session{Username: username, DEK: dek}, nil
}

func (a *authService) saveOfflineData(ctx context.Context, username string, cred *mainCredential) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)

		// a different user's catalog must not show up in this session
		previous, err := repo.Get(ctx, metaUsername)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		if previous != nil && string(previous) != username {
			if err := files.NewSQLiteRepository(tx).Clear(ctx); err != nil {
				return err
			}
		}

		values := []struct {
			key   string
			value []byte
		}{
			{metaUsername, []byte(username)},
			{metaSalt, cred.salt},
			{metaKeyHash, cred.keyHash},
			{metaEncryptedDEK, cred.encryptedDEK},
		}
		for _, v := range values {
			if err := repo.Set(ctx, v.key, v.value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Logout drops the server session. The offline cache is kept.
func (a *authService) Logout(ctx context.Context) error {
	a.client.Logout()
	return nil
}

// Recover proves the recovery key, unwraps the DEK with it and installs a
// new password. The recovery credential itself is unchanged.
func (a *authService) Recover(ctx context.Context, username, recoveryKey string, newPassword []byte) error {
	normalized := cryptox.NormalizeRecoveryKey(recoveryKey)
	defer common.WipeByteArray(normalized)

	material, err := a.client.InitiateRecovery(ctx, username, cryptox.RecoveryKeyHash(normalized))
	if err != nil {
		return fmt.Errorf("initiate recovery: %w", err)
	}

	recoveryKEK := cryptox.DeriveKey(normalized, material.RecoverySalt)
	defer common.WipeByteArray(recoveryKEK)

	dek, err := cryptox.UnwrapDEK(recoveryKEK, material.RecoveryEncryptedDEK)
	if err != nil {
		return fmt.Errorf("unwrap key: %w", err)
	}
	defer common.WipeByteArray(dek)

	cred, err := newMainCredential(newPassword, dek)
	if err != nil {
		return err
	}

	err = a.client.FinalizeRecovery(ctx, &api.FinalizeRecoveryRequest{
		Username:        username,
		Ticket:          material.Ticket,
		NewSalt:         cred.salt,
		NewKeyHash:      cred.keyHash,
		NewEncryptedDEK: cred.encryptedDEK,
	})
	if err != nil {
		return fmt.Errorf("finalize recovery: %w", err)
	}

	return a.ClearOfflineData(ctx)
}

// ChangePassword re-wraps the DEK under a new password. The current
// password is checked locally by unwrapping and then by the server.
func (a *authService) ChangePassword(ctx context.Context, current, newPassword []byte) error {
	acc, err := a.client.Me(ctx)
	if err != nil {
		return err
	}

	kek := cryptox.DeriveKey(current, acc.Salt)
	defer common.WipeByteArray(kek)

	dek, err := cryptox.UnwrapDEK(kek, acc.EncryptedDEK)
	if err != nil {
		return client.ErrUnauthorized
	}
	defer common.WipeByteArray(dek)

	cred, err := newMainCredential(newPassword, dek)
	if err != nil {
		return err
	}

	err = a.client.ChangeKey(ctx, &api.ChangeKeyRequest{
		CurrentKeyHash:  cryptox.KeyHash(kek),
		NewSalt:         cred.salt,
		NewKeyHash:      cred.keyHash,
		NewEncryptedDEK: cred.encryptedDEK,
	})
	if err != nil {
		return err
	}

	// the server revoked all sessions
	a.client.Logout()
	return a.saveOfflineData(ctx, acc.Username, cred)
}

func (a *authService) Me(ctx context.Context) (*api.Account, error) {
	return a.client.Me(ctx)
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}

// ClearOfflineData wipes the cached credentials and the file catalog.
func (a *authService) ClearOfflineData(ctx context.Context) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := metadata.NewSQLiteRepository(tx).Clear(ctx); err != nil {
			return err
		}
		return files.NewSQLiteRepository(tx).Clear(ctx)
	})
}
