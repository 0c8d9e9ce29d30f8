package policy

import (
	"math"
	"time"

	"github.com/dmitrijs2005/axiomvault/internal/server/models"
)

// Verdict is the outcome of evaluating an account's lock state.
type Verdict int

const (
	Allowed Verdict = iota
	DeniedPermanent
	DeniedTemporary
	ShouldAutoUnlock
)

func (v Verdict) String() string {
	switch v {
	case Allowed:
		return "allowed"
	case DeniedPermanent:
		return "denied_permanent"
	case DeniedTemporary:
		return "denied_temporary"
	case ShouldAutoUnlock:
		return "should_auto_unlock"
	default:
		return "unknown"
	}
}

// Decision is a Verdict plus, for DeniedTemporary, the whole minutes left.
type Decision struct {
	Verdict     Verdict
	MinutesLeft int
}

// Lockout decides whether a login attempt may proceed and how failures
// escalate into a system lock.
type Lockout struct {
	maxFailedAttempts int
	duration          time.Duration
}

func NewLockout(cfg Config) *Lockout {
	cfg = cfg.withDefaults()
	return &Lockout{maxFailedAttempts: cfg.MaxFailedAttempts, duration: cfg.LockoutDuration}
}

// Threshold is the number of consecutive failures that triggers a lock.
func (l *Lockout) Threshold() int { return l.maxFailedAttempts }

// Duration is how long a system lock lasts.
func (l *Lockout) Duration() time.Duration { return l.duration }

// Evaluate applies the lock rules in order: administrative lock, running
// system lock, elapsed system lock, otherwise allowed. failedAttempts does not
// influence the verdict; the counter only matters on the failure path.
func (l *Lockout) Evaluate(isLocked bool, lockoutUntil *time.Time, failedAttempts int, now time.Time) Decision {
	switch {
	case isLocked && lockoutUntil == nil:
		return Decision{Verdict: DeniedPermanent}
	case isLocked && now.Before(*lockoutUntil):
		return Decision{Verdict: DeniedTemporary, MinutesLeft: minutesUntil(*lockoutUntil, now)}
	case isLocked:
		return Decision{Verdict: ShouldAutoUnlock}
	default:
		return Decision{Verdict: Allowed}
	}
}

// EvaluateAccount is Evaluate over an account's fields.
func (l *Lockout) EvaluateAccount(a *models.Account, now time.Time) Decision {
	return l.Evaluate(a.IsLocked, a.LockoutUntil, a.FailedLoginAttempts, now)
}

// RegisterFailure counts a credential mismatch and reports whether this
// failure put a system lock on the account.
func (l *Lockout) RegisterFailure(a *models.Account, now time.Time) bool {
	a.FailedLoginAttempts++
	if a.FailedLoginAttempts < l.maxFailedAttempts {
		return false
	}
	until := now.Add(l.duration)
	a.IsLocked = true
	a.LockoutUntil = &until
	return true
}

// RegisterSuccess clears the failure counter and any lock timestamp after a
// credential match. It reports whether anything changed. An administrative
// lock is left untouched.
func (l *Lockout) RegisterSuccess(a *models.Account) bool {
	if a.FailedLoginAttempts == 0 && a.LockoutUntil == nil {
		return false
	}
	a.FailedLoginAttempts = 0
	a.LockoutUntil = nil
	return true
}

// Unlock removes any lock and resets the counter. Used for auto-unlock and
// for operator unlocks.
func Unlock(a *models.Account) {
	a.IsLocked = false
	a.LockoutUntil = nil
	a.FailedLoginAttempts = 0
}

// LockAdministratively puts an indefinite lock on the account.
func LockAdministratively(a *models.Account) {
	a.IsLocked = true
	a.LockoutUntil = nil
}

func minutesUntil(t, now time.Time) int {
	return int(math.Ceil(t.Sub(now).Seconds() / 60))
}
