package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/axiomvault/internal/common"
	"github.com/dmitrijs2005/axiomvault/internal/dbx"
	"github.com/dmitrijs2005/axiomvault/internal/logging"
	"github.com/dmitrijs2005/axiomvault/internal/server/models"
	"github.com/dmitrijs2005/axiomvault/internal/server/policy"
	"github.com/dmitrijs2005/axiomvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/axiomvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/axiomvault/internal/timex"
)

// decoySaltLen matches the salt length the client generates.
const decoySaltLen = 16

// RegisterInput is everything the client derived locally for a new account.
type RegisterInput struct {
	Username             string
	Salt                 []byte
	KeyHash              []byte
	EncryptedDEK         []byte
	RecoverySalt         []byte
	RecoveryKeyHash      []byte
	RecoveryEncryptedDEK []byte
}

// ChangeKeyInput replaces the main credential of a signed-in account.
type ChangeKeyInput struct {
	CurrentKeyHash  []byte
	NewSalt         []byte
	NewKeyHash      []byte
	NewEncryptedDEK []byte
}

// AccountService handles registration, salt lookup, the account view, key
// changes and the access gates applied to authenticated calls.
type AccountService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	lockout      *policy.Lockout
	subscription *policy.Subscription
	clock        timex.Clock
	log          logging.Logger
	decoyKey     []byte
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, cfg policy.Config, secret string,
	clock timex.Clock, log logging.Logger) *AccountService {
	return &AccountService{
		db:           db,
		repomanager:  m,
		lockout:      policy.NewLockout(cfg),
		subscription: policy.NewSubscription(cfg),
		clock:        clock,
		log:          log.With("module", "accounts"),
		decoyKey:     []byte(secret),
	}
}

// Register stores a new account on the FREE plan.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AccountSnapshot, error) {
	if err := validateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validateKeyMaterial(
		keyMaterial{"salt", in.Salt},
		keyMaterial{"key_hash", in.KeyHash},
		keyMaterial{"encrypted_dek", in.EncryptedDEK},
		keyMaterial{"recovery_salt", in.RecoverySalt},
		keyMaterial{"recovery_key_hash", in.RecoveryKeyHash},
		keyMaterial{"recovery_encrypted_dek", in.RecoveryEncryptedDEK},
	); err != nil {
		return nil, err
	}

	repo := s.repomanager.Accounts(s.db)

	exists, err := repo.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, transient(err)
	}
	if exists {
		return nil, common.ErrDuplicateUsername
	}

	now := s.clock.Now()
	a := &models.Account{
		Username:             in.Username,
		Salt:                 in.Salt,
		KeyHash:              in.KeyHash,
		EncryptedDEK:         in.EncryptedDEK,
		RecoverySalt:         in.RecoverySalt,
		RecoveryKeyHash:      in.RecoveryKeyHash,
		RecoveryEncryptedDEK: in.RecoveryEncryptedDEK,
		SubscriptionPlan:     models.PlanFree,
	}
	s.subscription.Apply(a, "", now, true)

	created, err := repo.Create(ctx, a)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrDuplicateUsername
		}
		return nil, transient(err)
	}

	s.log.Info(ctx, "account registered", "username", created.Username, "id", created.ID)
	return snapshotOf(created, now), nil
}

// GetSalt returns the stored salt. Unknown usernames get a stable decoy so
// the response does not reveal whether the account exists.
func (s *AccountService) GetSalt(ctx context.Context, username string) ([]byte, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}

	a, err := s.repomanager.Accounts(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return s.decoySalt(username), nil
		}
		return nil, transient(err)
	}
	return a.Salt, nil
}

func (s *AccountService) decoySalt(username string) []byte {
	mac := hmac.New(sha256.New, s.decoyKey)
	mac.Write([]byte("decoy-salt:"))
	mac.Write([]byte(username))
	return mac.Sum(nil)[:decoySaltLen]
}

// Me returns the caller's own account.
func (s *AccountService) Me(ctx context.Context, userID string) (*AccountSnapshot, error) {
	a, err := s.repomanager.Accounts(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, transient(err)
	}
	return snapshotOf(a, s.clock.Now()), nil
}

// ChangeKey replaces salt, key hash and DEK envelope after re-checking the
// current key hash. Outstanding refresh tokens are revoked. The recovery
// credential is left alone.
func (s *AccountService) ChangeKey(ctx context.Context, userID string, in ChangeKeyInput) error {
	if err := validateKeyMaterial(
		keyMaterial{"current_key_hash", in.CurrentKeyHash},
		keyMaterial{"new_salt", in.NewSalt},
		keyMaterial{"new_key_hash", in.NewKeyHash},
		keyMaterial{"new_encrypted_dek", in.NewEncryptedDEK},
	); err != nil {
		return err
	}

	var denial error
	err := accounts.AtomicUpdate(ctx, s.db, s.repomanager.Accounts, accounts.ByID(userID),
		func(ctx context.Context, tx dbx.DBTX, a *models.Account) (bool, error) {
			if subtle.ConstantTimeCompare(a.KeyHash, in.CurrentKeyHash) != 1 {
				denial = common.ErrInvalidCredentials
				return false, nil
			}
			replaceMainCredential(a, in.NewSalt, in.NewKeyHash, in.NewEncryptedDEK)
			if err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, a.ID); err != nil {
				return false, err
			}
			return true, nil
		})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return transient(err)
	}
	if denial != nil {
		return denial
	}

	s.log.Info(ctx, "main credential changed", "id", userID)
	return nil
}

// Authorize loads the caller's account and applies the access gates: a
// locked account is refused, and so is an expired subscription unless the
// account is staff or admin. An elapsed system lock does not block access.
func (s *AccountService) Authorize(ctx context.Context, userID string) (*models.Account, error) {
	a, err := s.repomanager.Accounts(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, transient(err)
	}

	now := s.clock.Now()
	if err := lockedErrorOf(s.lockout.EvaluateAccount(a, now)); err != nil {
		return nil, err
	}
	if !a.Privileged() && !policy.IsActive(a.SubscriptionExpiry, now) {
		return nil, common.ErrSubscriptionExpired
	}
	return a, nil
}

func replaceMainCredential(a *models.Account, salt, keyHash, encryptedDEK []byte) {
	a.Salt = salt
	a.KeyHash = keyHash
	a.EncryptedDEK = encryptedDEK
}
