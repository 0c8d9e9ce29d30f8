package services

import (
	"context"
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

// AdminService holds operator actions. Every method takes the id of the
// acting account, which must be staff or admin.
type AdminService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	subscription *policy.Subscription
	clock        timex.Clock
	log          logging.Logger
}

func NewAdminService(db *sql.DB, m repomanager.RepositoryManager, cfg policy.Config,
	clock timex.Clock, log logging.Logger) *AdminService {
	return &AdminService{
		db:           db,
		repomanager:  m,
		subscription: policy.NewSubscription(cfg),
		clock:        clock,
		log:          log.With("module", "admin"),
	}
}

// LockAccount puts an administrative lock on username.
func (s *AdminService) LockAccount(ctx context.Context, actorID, username string) error {
	return s.update(ctx, actorID, username, "account locked by operator", func(a *models.Account) {
		policy.LockAdministratively(a)
	})
}

// UnlockAccount clears any lock on username and resets its failure counter.
func (s *AdminService) UnlockAccount(ctx context.Context, actorID, username string) error {
	return s.update(ctx, actorID, username, "account unlocked by operator", policy.Unlock)
}

// ChangePlan moves username to plan. Expiry restarts when the plan actually
// changes; the quota always follows the plan.
func (s *AdminService) ChangePlan(ctx context.Context, actorID, username, plan string) (*AccountSnapshot, error) {
	p, ok := models.ParsePlan(plan)
	if !ok {
		return nil, &common.ValidationError{Field: "plan", Reason: "must be FREE, STANDARD or PRO"}
	}

	now := s.clock.Now()
	var snapshot *AccountSnapshot
	err := s.update(ctx, actorID, username, "subscription plan changed", func(a *models.Account) {
		previous := a.SubscriptionPlan
		a.SubscriptionPlan = p
		s.subscription.Apply(a, previous, now, false)
		snapshot = snapshotOf(a, now)
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *AdminService) update(ctx context.Context, actorID, username, event string, fn func(*models.Account)) error {
	if err := s.requireOperator(ctx, actorID); err != nil {
		return err
	}

	err := accounts.AtomicUpdate(ctx, s.db, s.repomanager.Accounts, accounts.ByUsername(username),
		func(_ context.Context, _ dbx.DBTX, a *models.Account) (bool, error) {
			fn(a)
			return true, nil
		})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return transient(err)
	}

	s.log.Info(ctx, event, "username", username, "actor", actorID)
	return nil
}

func (s *AdminService) requireOperator(ctx context.Context, actorID string) error {
	actor, err := s.repomanager.Accounts(s.db).GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return transient(err)
	}
	if !actor.Privileged() {
		s.log.Warn(ctx, "operator action refused", "actor", actorID)
		return common.ErrorForbidden
	}
	return nil
}
