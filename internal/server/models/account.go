// Package models defines server-side data models persisted in the database.
package models

import "time"

// Plan is a subscription tier.
type Plan string

const (
	PlanFree     Plan = "FREE"
	PlanStandard Plan = "STANDARD"
	PlanPro      Plan = "PRO"
)

// ParsePlan maps a client-supplied tag onto a known plan.
func ParsePlan(s string) (Plan, bool) {
	switch p := Plan(s); p {
	case PlanFree, PlanStandard, PlanPro:
		return p, true
	default:
		return "", false
	}
}

// Account is the credential store record. Key material is produced by the
// client; the server only stores it and compares KeyHash / RecoveryKeyHash.
type Account struct {
	ID       string
	Username string

	Salt         []byte
	KeyHash      []byte
	EncryptedDEK []byte

	RecoverySalt         []byte
	RecoveryKeyHash      []byte
	RecoveryEncryptedDEK []byte

	// IsLocked with a nil LockoutUntil is an administrative lock.
	IsLocked            bool
	LockoutUntil        *time.Time
	FailedLoginAttempts int

	SubscriptionPlan   Plan
	SubscriptionExpiry *time.Time
	UploadLimitMB      int64

	IsStaff   bool
	IsAdmin   bool
	CreatedAt time.Time
}

// Privileged accounts bypass subscription checks.
func (a *Account) Privileged() bool {
	return a.IsStaff || a.IsAdmin
}

// AdministrativelyLocked reports a lock that only an operator can clear.
func (a *Account) AdministrativelyLocked() bool {
	return a.IsLocked && a.LockoutUntil == nil
}
