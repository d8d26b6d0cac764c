package store

import "errors"

// Error kinds surfaced by the store and the services built on it.
// Callers classify with errors.Is.
var (
	// ErrValidation marks malformed input. Not retried.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing trip, participant, user or notification.
	ErrNotFound = errors.New("not found")

	// ErrForbidden marks an action the caller is not allowed to perform,
	// such as a non-creator accepting a request.
	ErrForbidden = errors.New("forbidden")

	// ErrCapacityExceeded marks an accept that would oversubscribe seats.
	// The caller should refetch before retrying.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrConflict marks a concurrent modification, e.g. a participant that
	// is no longer pending. Never blindly retried.
	ErrConflict = errors.New("conflict")

	// ErrTransient marks store unavailability. Safe to retry with backoff
	// for idempotent operations only.
	ErrTransient = errors.New("store unavailable")
)
