package services

import (
	"context"
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

// AuthResult is returned by a successful login.
type AuthResult struct {
	Tokens  TokenPair
	Account AccountSnapshot
}

// AuthService is the login orchestrator. It is the only place where lockout
// and subscription decisions turn into persisted state and caller-visible
// errors.
type AuthService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	lockout      *policy.Lockout
	subscription *policy.Subscription
	issuer       TokenIssuer
	clock        timex.Clock
	log          logging.Logger
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg policy.Config, issuer TokenIssuer,
	clock timex.Clock, log logging.Logger) *AuthService {
	return &AuthService{
		db:           db,
		repomanager:  m,
		lockout:      policy.NewLockout(cfg),
		subscription: policy.NewSubscription(cfg),
		issuer:       issuer,
		clock:        clock,
		log:          log.With("module", "auth"),
	}
}

// Authenticate verifies keyHash for username and issues tokens.
//
// The steps run in a fixed order inside one row-locked transaction: lookup,
// lockout evaluation (an elapsed system lock is cleared and the attempt
// continues), credential comparison with failure accounting, counter reset,
// and finally the subscription check for non-privileged accounts. Failure
// accounting is committed even though the call returns an error.
func (s *AuthService) Authenticate(ctx context.Context, username string, keyHash []byte) (*AuthResult, error) {
	if username == "" || len(keyHash) == 0 {
		return nil, common.ErrInvalidCredentials
	}

	var (
		denial   error
		snapshot *AccountSnapshot
	)

	err := accounts.AtomicUpdate(ctx, s.db, s.repomanager.Accounts, accounts.ByUsername(username),
		func(ctx context.Context, _ dbx.DBTX, a *models.Account) (bool, error) {
			now := s.clock.Now()
			dirty := false

			switch d := s.lockout.EvaluateAccount(a, now); d.Verdict {
			case policy.DeniedPermanent, policy.DeniedTemporary:
				denial = lockedErrorOf(d)
				return false, nil
			case policy.ShouldAutoUnlock:
				policy.Unlock(a)
				dirty = true
				s.log.Info(ctx, "lockout expired, account unlocked", "username", a.Username)
			}

			if subtle.ConstantTimeCompare(a.KeyHash, keyHash) != 1 {
				if s.lockout.RegisterFailure(a, now) {
					denial = lockedErrorOf(s.lockout.EvaluateAccount(a, now))
					s.log.Warn(ctx, "account locked after failed logins",
						"username", a.Username, "attempts", a.FailedLoginAttempts, "until", a.LockoutUntil)
				} else {
					denial = common.ErrInvalidCredentials
					s.log.Info(ctx, "failed login", "username", a.Username, "attempts", a.FailedLoginAttempts)
				}
				return true, nil
			}

			if s.lockout.RegisterSuccess(a) {
				dirty = true
			}

			if !a.Privileged() && !policy.IsActive(a.SubscriptionExpiry, now) {
				denial = common.ErrSubscriptionExpired
				s.log.Info(ctx, "login with expired subscription", "username", a.Username)
				return dirty, nil
			}

			snapshot = snapshotOf(a, now)
			return dirty, nil
		})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		s.log.Error(ctx, "authenticate failed", "error", err)
		return nil, transient(err)
	}
	if denial != nil {
		return nil, denial
	}

	tokens, err := s.issuer.Issue(ctx, snapshot.ID)
	if err != nil {
		s.log.Error(ctx, "token issue failed", "error", err)
		return nil, err
	}

	return &AuthResult{Tokens: *tokens, Account: *snapshot}, nil
}

// lockedErrorOf converts a denying lockout decision into an error, or nil
// when access is allowed.
func lockedErrorOf(d policy.Decision) error {
	switch d.Verdict {
	case policy.DeniedPermanent:
		return common.ErrAccountLockedPermanent
	case policy.DeniedTemporary:
		return &common.LockedError{MinutesLeft: d.MinutesLeft}
	default:
		return nil
	}
}
