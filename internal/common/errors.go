// Package common defines shared constants and sentinel errors used across
// client and server layers of axiomvault. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Persistence failures callers may retry.
	ErrTransient = errors.New("temporary failure, please retry")

	// Authentication taxonomy. None of these should be retried as-is.
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAccountLockedPermanent = errors.New("account is locked, please contact support")
	ErrAccountLockedTemporary = errors.New("account is temporarily locked")
	ErrSubscriptionExpired    = errors.New("your plan has expired, upgrade your account to continue")
	ErrDuplicateUsername      = errors.New("username already taken")
	ErrValidationFailed       = errors.New("validation failed")

	// File quota errors.
	ErrQuotaExceeded  = errors.New("storage quota exceeded")
	ErrUploadMismatch = errors.New("uploaded object does not match the declared file size")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired          = errors.New("token expired")
	ErrRefreshTokenExpired   = errors.New("refresh token expired")
	ErrRecoveryTicketInvalid = errors.New("recovery ticket invalid or expired")
)

// LockedError reports a system lock that clears on its own after
// MinutesLeft minutes. It matches ErrAccountLockedTemporary.
type LockedError struct {
	MinutesLeft int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account is locked due to failed attempts, try again in %d minutes", e.MinutesLeft)
}

func (e *LockedError) Is(target error) bool {
	return target == ErrAccountLockedTemporary
}

// ValidationError names the offending input field. It matches ErrValidationFailed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}
