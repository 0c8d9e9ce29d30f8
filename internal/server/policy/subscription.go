package policy

import (
	"time"

	"github.com/dmitrijs2005/axiomvault/internal/server/models"
)

// Subscription maps plans to terms and computes expiry state.
type Subscription struct {
	plans map[models.Plan]PlanTerms
}

func NewSubscription(cfg Config) *Subscription {
	cfg = cfg.withDefaults()
	return &Subscription{plans: cfg.Plans}
}

// Terms returns the plan's terms. An unknown plan lasts as long as FREE and
// has no quota.
func (s *Subscription) Terms(p models.Plan) PlanTerms {
	if t, ok := s.plans[p]; ok {
		return t
	}
	return PlanTerms{Duration: s.plans[models.PlanFree].Duration, QuotaMB: 0}
}

// Apply recomputes the derived subscription fields. The expiry restarts only
// when creating the account or when the plan differs from previous; the
// quota is always brought in line with the current plan. It reports whether
// the expiry was reset.
func (s *Subscription) Apply(a *models.Account, previous models.Plan, now time.Time, creating bool) bool {
	terms := s.Terms(a.SubscriptionPlan)
	a.UploadLimitMB = terms.QuotaMB

	if !creating && a.SubscriptionPlan == previous {
		return false
	}
	expiry := now.Add(terms.Duration)
	a.SubscriptionExpiry = &expiry
	return true
}

// IsActive is true for a nil expiry (never expires), else now < expiry.
func IsActive(expiry *time.Time, now time.Time) bool {
	return expiry == nil || now.Before(*expiry)
}

// DaysLeft is -1 for a nil expiry, 0 once expired, else the whole days
// remaining rounded down.
func DaysLeft(expiry *time.Time, now time.Time) int {
	if expiry == nil {
		return -1
	}
	if !now.Before(*expiry) {
		return 0
	}
	return int(expiry.Sub(now) / (24 * time.Hour))
}
