package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/axiomvault/internal/common"
	"github.com/dmitrijs2005/axiomvault/internal/dbx"
	"github.com/dmitrijs2005/axiomvault/internal/logging"
	"github.com/dmitrijs2005/axiomvault/internal/server/config"
	"github.com/dmitrijs2005/axiomvault/internal/server/models"
	"github.com/dmitrijs2005/axiomvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/axiomvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/axiomvault/internal/timex"
)

// RecoveryMaterial lets the client unwrap its DEK with the recovery key.
// Ticket must be presented to FinalizeRecovery before TicketExpires.
type RecoveryMaterial struct {
	RecoverySalt         []byte
	RecoveryEncryptedDEK []byte
	Ticket               string
	TicketExpires        time.Time
}

// FinalizeInput installs a new main credential after a successful initiation.
type FinalizeInput struct {
	Username        string
	Ticket          string
	NewSalt         []byte
	NewKeyHash      []byte
	NewEncryptedDEK []byte
}

// ResetKeyInput proves the recovery key and installs a new main credential
// in one call.
type ResetKeyInput struct {
	Username        string
	RecoveryKeyHash []byte
	NewSalt         []byte
	NewKeyHash      []byte
	NewEncryptedDEK []byte
}

// RecoveryService implements key recovery through the secondary credential.
// It bypasses the lockout policy.
type RecoveryService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	clock         timex.Clock
	log           logging.Logger
	ticketTTL     time.Duration
	requireTicket bool
}

func NewRecoveryService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	clock timex.Clock, log logging.Logger) *RecoveryService {
	ttl := cfg.RecoveryTicketTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RecoveryService{
		db:            db,
		repomanager:   m,
		clock:         clock,
		log:           log.With("module", "recovery"),
		ticketTTL:     ttl,
		requireTicket: cfg.RequireRecoveryTicket,
	}
}

// InitiateRecovery checks the recovery key hash and hands back the recovery
// envelope plus a single-use ticket. Unknown users and wrong keys are
// indistinguishable. The account is not modified.
func (s *RecoveryService) InitiateRecovery(ctx context.Context, username string, recoveryKeyHash []byte) (*RecoveryMaterial, error) {
	if username == "" || len(recoveryKeyHash) == 0 {
		return nil, common.ErrInvalidCredentials
	}

	a, err := s.repomanager.Accounts(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, transient(err)
	}
	if subtle.ConstantTimeCompare(a.RecoveryKeyHash, recoveryKeyHash) != 1 {
		s.log.Info(ctx, "recovery initiation rejected", "username", username)
		return nil, common.ErrInvalidCredentials
	}

	ticket, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	expires := s.clock.Now().Add(s.ticketTTL)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.RecoveryTickets(tx).Create(ctx, a.ID, hashTicket(ticket), expires)
	})
	if err != nil {
		return nil, transient(err)
	}

	s.log.Info(ctx, "recovery initiated", "username", username)
	return &RecoveryMaterial{
		RecoverySalt:         a.RecoverySalt,
		RecoveryEncryptedDEK: a.RecoveryEncryptedDEK,
		Ticket:               ticket,
		TicketExpires:        expires,
	}, nil
}

// FinalizeRecovery replaces salt, key hash and DEK envelope in one update.
// When tickets are required, the ticket from InitiateRecovery must match the
// account and be unexpired; it is consumed on success.
func (s *RecoveryService) FinalizeRecovery(ctx context.Context, in FinalizeInput) error {
	if err := validateUsername(in.Username); err != nil {
		return err
	}
	if err := validateNewCredential(in.NewSalt, in.NewKeyHash, in.NewEncryptedDEK); err != nil {
		return err
	}
	if s.requireTicket && in.Ticket == "" {
		return common.ErrRecoveryTicketInvalid
	}

	err := accounts.AtomicUpdate(ctx, s.db, s.repomanager.Accounts, accounts.ByUsername(in.Username),
		func(ctx context.Context, tx dbx.DBTX, a *models.Account) (bool, error) {
			if s.requireTicket {
				if err := s.consumeTicket(ctx, tx, in.Ticket, a.ID); err != nil {
					return false, err
				}
			}
			replaceMainCredential(a, in.NewSalt, in.NewKeyHash, in.NewEncryptedDEK)
			if err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, a.ID); err != nil {
				return false, err
			}
			return true, nil
		})
	switch {
	case errors.Is(err, common.ErrRecoveryTicketInvalid):
		s.log.Warn(ctx, "recovery finalize with bad ticket", "username", in.Username)
		s.discardTicket(ctx, in.Ticket)
		return err
	case errors.Is(err, common.ErrorNotFound):
		return common.ErrInvalidCredentials
	case err != nil:
		return transient(err)
	}

	s.log.Info(ctx, "recovery finalized", "username", in.Username)
	return nil
}

// ResetKey is the single-call variant: prove the recovery key and replace
// the main credential in the same transaction.
func (s *RecoveryService) ResetKey(ctx context.Context, in ResetKeyInput) error {
	if in.Username == "" || len(in.RecoveryKeyHash) == 0 {
		return common.ErrInvalidCredentials
	}
	if err := validateNewCredential(in.NewSalt, in.NewKeyHash, in.NewEncryptedDEK); err != nil {
		return err
	}

	var denial error
	err := accounts.AtomicUpdate(ctx, s.db, s.repomanager.Accounts, accounts.ByUsername(in.Username),
		func(ctx context.Context, tx dbx.DBTX, a *models.Account) (bool, error) {
			if subtle.ConstantTimeCompare(a.RecoveryKeyHash, in.RecoveryKeyHash) != 1 {
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
			return common.ErrInvalidCredentials
		}
		return transient(err)
	}
	if denial != nil {
		s.log.Info(ctx, "key reset rejected", "username", in.Username)
		return denial
	}

	s.log.Info(ctx, "key reset", "username", in.Username)
	return nil
}

func (s *RecoveryService) consumeTicket(ctx context.Context, tx dbx.DBTX, ticket, accountID string) error {
	t, err := s.repomanager.RecoveryTickets(tx).Consume(ctx, hashTicket(ticket))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrRecoveryTicketInvalid
		}
		return err
	}
	if t.UserID != accountID || !s.clock.Now().Before(t.Expires) {
		return common.ErrRecoveryTicketInvalid
	}
	return nil
}

// discardTicket deletes a ticket that failed its checks. The delete inside
// the rolled-back update does not stick, so an expired or misdirected ticket
// is removed here instead of waiting for the user's next InitiateRecovery.
func (s *RecoveryService) discardTicket(ctx context.Context, ticket string) {
	if ticket == "" {
		return
	}
	_, err := s.repomanager.RecoveryTickets(s.db).Consume(ctx, hashTicket(ticket))
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.log.Warn(ctx, "cannot discard recovery ticket", "error", err)
	}
}

func hashTicket(ticket string) []byte {
	sum := sha256.Sum256([]byte(ticket))
	return sum[:]
}

func validateNewCredential(salt, keyHash, encryptedDEK []byte) error {
	return validateKeyMaterial(
		keyMaterial{"new_salt", salt},
		keyMaterial{"new_key_hash", keyHash},
		keyMaterial{"new_encrypted_dek", encryptedDEK},
	)
}
