// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values let the service layer distinguish
// failure scenarios without inspecting driver errors: every driver error
// that matters (unique violations, lock contention) is classified here and
// wrapped in one of the sentinels below.
package repository

import (
	"errors"
	"fmt"

	"github.com/iliyamo/travel-booking/internal/database"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a conditional state transition matched no
// row because the row is no longer in the expected state, e.g. cancelling
// a booking that is already cancelled.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert hits a unique constraint.
var ErrDuplicate = errors.New("duplicate")

// ErrNoCapacity is returned by the conditional decrement when the
// resource has no capacity left.
var ErrNoCapacity = errors.New("no capacity remaining")

// ErrCapacityFull is returned by the conditional increment when the
// resource is already at its total capacity.
var ErrCapacityFull = errors.New("capacity already at total")

// ErrRetryable wraps lock contention (deadlock, lock wait timeout,
// serialization failure, busy database).  The whole transaction may be
// retried.
var ErrRetryable = errors.New("retryable storage conflict")

// ErrEmailExists and ErrUsernameExists refine ErrDuplicate for users.
var (
	ErrEmailExists    = fmt.Errorf("email already exists: %w", ErrDuplicate)
	ErrUsernameExists = fmt.Errorf("username already exists: %w", ErrDuplicate)
)

// classify wraps driver errors in the sentinels above.  Errors that are
// neither duplicates nor contention are returned with context only.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case database.IsRetryable(err):
		return fmt.Errorf("%s: %w: %v", op, ErrRetryable, err)
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w: %v", op, ErrDuplicate, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
