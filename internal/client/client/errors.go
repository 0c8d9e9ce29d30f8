package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable           = errors.New("server unavailable")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrLocalDataNotAvailable = errors.New("local data unavailable")
	ErrLocked                = errors.New("account locked")
	ErrForbidden             = errors.New("forbidden")
	ErrRejected              = errors.New("request rejected")
	ErrAlreadyExists         = errors.New("already exists")
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("not found")
	ErrLimitExceeded         = errors.New("limit exceeded")
)

// ServerError keeps the server's message next to the matching sentinel.
type ServerError struct {
	Kind    error
	Message string
}

func (e *ServerError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }
func (e *ServerError) Unwrap() error { return e.Kind }

// LockedError is a temporary lock; it matches ErrLocked.
type LockedError struct {
	MinutesLeft int
	Message     string
}

func (e *LockedError) Error() string { return e.Message }
func (e *LockedError) Is(target error) bool {
	return target == ErrLocked
}
