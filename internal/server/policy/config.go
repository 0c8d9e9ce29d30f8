// Package policy holds the pure decision logic of the account state machine:
// lockout evaluation and subscription terms. Nothing here touches storage or
// returns errors; the services package turns decisions into effects.
package policy

import (
	"time"

	"github.com/dmitrijs2005/axiomvault/internal/server/models"
)

const (
	DefaultMaxFailedAttempts = 3
	DefaultLockoutDuration   = 15 * time.Minute
)

// PlanTerms is what a plan buys: how long it lasts and how much it stores.
type PlanTerms struct {
	Duration time.Duration
	QuotaMB  int64
}

// Config carries every tunable of the policies. It is passed in at
// construction; the policies never read global state.
type Config struct {
	MaxFailedAttempts int
	LockoutDuration   time.Duration
	Plans             map[models.Plan]PlanTerms
}

// DefaultPlans returns the stock plan table.
func DefaultPlans() map[models.Plan]PlanTerms {
	return map[models.Plan]PlanTerms{
		models.PlanFree:     {Duration: 30 * 24 * time.Hour, QuotaMB: 10},
		models.PlanStandard: {Duration: 180 * 24 * time.Hour, QuotaMB: 5120},
		models.PlanPro:      {Duration: 365 * 24 * time.Hour, QuotaMB: 51200},
	}
}

// DefaultConfig is 3 attempts, 15 minute lock and the stock plan table.
func DefaultConfig() Config {
	return Config{
		MaxFailedAttempts: DefaultMaxFailedAttempts,
		LockoutDuration:   DefaultLockoutDuration,
		Plans:             DefaultPlans(),
	}
}

func (c Config) withDefaults() Config {
	if c.MaxFailedAttempts <= 0 {
		c.MaxFailedAttempts = DefaultMaxFailedAttempts
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = DefaultLockoutDuration
	}
	if len(c.Plans) == 0 {
		c.Plans = DefaultPlans()
	}
	return c
}
