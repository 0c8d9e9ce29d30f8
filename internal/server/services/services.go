// Package services contains the server-side business logic: the
// authentication orchestrator, registration and recovery, administrative
// actions and file metadata. Services own transactions and translate
// repository failures into the common error taxonomy.
package services

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/axiomvault/internal/common"
	"github.com/dmitrijs2005/axiomvault/internal/server/models"
	"github.com/dmitrijs2005/axiomvault/internal/server/policy"
)

// AccountSnapshot is the client-visible view of an account.
type AccountSnapshot struct {
	ID               string
	Username         string
	Salt             []byte
	EncryptedDEK     []byte
	SubscriptionPlan models.Plan
	UploadLimitMB    int64
	IsLocked         bool
	DaysLeft         int
	CreatedAt        time.Time
}

func snapshotOf(a *models.Account, now time.Time) *AccountSnapshot {
	return &AccountSnapshot{
		ID:               a.ID,
		Username:         a.Username,
		Salt:             a.Salt,
		EncryptedDEK:     a.EncryptedDEK,
		SubscriptionPlan: a.SubscriptionPlan,
		UploadLimitMB:    a.UploadLimitMB,
		IsLocked:         a.IsLocked,
		DaysLeft:         policy.DaysLeft(a.SubscriptionExpiry, now),
		CreatedAt:        a.CreatedAt,
	}
}

// transient marks a persistence failure as retryable while keeping the cause.
func transient(err error) error {
	return fmt.Errorf("%w: %w", common.ErrTransient, err)
}
