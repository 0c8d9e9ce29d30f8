package models

import "time"

type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}

// RecoveryTicket is the single-use proof, issued by a successful recovery
// initiation, that FinalizeRecovery consumes.
type RecoveryTicket struct {
	UserID  string
	Expires time.Time
}
