package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrPermission  = errors.New("permission denied")
	ErrState       = errors.New("invalid state")
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e ValidationError) Is(target error) bool { return target == ErrValidation }

type PermissionError struct {
	Reason string
}

func (e PermissionError) Error() string {
	return "permission denied: " + e.Reason
}

func (e PermissionError) Is(target error) bool { return target == ErrPermission }

// StateError carries the current status so clients can resync.
type StateError struct {
	Entity  string
	ID      int64
	Current string
	Action  string
}

func (e StateError) Error() string {
	return fmt.Sprintf("cannot %s %s %d in status %q", e.Action, e.Entity, e.ID, e.Current)
}

func (e StateError) Is(target error) bool { return target == ErrState }

type NotFoundError struct {
	Entity string
	ID     int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

func (e RateLimitedError) Is(target error) bool { return target == ErrRateLimited }
