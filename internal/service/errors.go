// Package service implements the credential store and the booking engine on
// top of the repositories.  Storage errors never leave this package raw:
// they are translated into the sentinels below, which handlers map to HTTP
// status codes.
package service

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrAuthFailure       = errors.New("invalid credentials")

	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrUnauthorized     = errors.New("not the owner of this booking")
	ErrResourceNotFound = errors.New("resource not found")
	ErrNoCapacity       = errors.New("no capacity remaining")
	ErrAlreadyBooked    = errors.New("already booked with this idempotency key")
	ErrNotFound         = errors.New("not found")

	// ErrTransientFailure means storage could not complete the operation,
	// for example after exhausting retries on lock contention.  Callers may
	// retry later.
	ErrTransientFailure = errors.New("temporary storage failure")
)
