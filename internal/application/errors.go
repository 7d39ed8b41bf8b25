package application

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested booking or resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a create collides with an existing record.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrConcurrencyConflict is returned when an atomic commit lost a race after
	// exhausting retries. It is the only error safe to retry automatically, and
	// retrying means re-running the whole availability check, not just the write.
	ErrConcurrencyConflict = errors.New("application: concurrency conflict")
	// ErrInvalidCredentials is returned when authentication fails.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrAccountDisabled is returned when a disabled operator attempts to authenticate.
	ErrAccountDisabled = errors.New("application: account disabled")
	// ErrAccountLocked is returned after repeated failed authentication attempts.
	ErrAccountLocked = errors.New("application: account locked")
	// ErrSessionExpired is returned when a session token is past its expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session token has been revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
)

// ResourceNotFoundError reports a candidate resource id missing from the catalog.
type ResourceNotFoundError struct {
	ResourceID string
}

// Error implements the error interface.
func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("resource %q not found", e.ResourceID)
}

// Is makes ResourceNotFoundError match ErrNotFound for coarse-grained checks.
func (e *ResourceNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ResourceConflict identifies one resource/booking pair blocking an assignment.
type ResourceConflict struct {
	ResourceID string `json:"resource_id"`
	BookingID  string `json:"booking_id"`
}

// ConflictError reports that an availability check failed. It carries every
// blocking pair so callers can present actionable detail, not just the first.
type ConflictError struct {
	Conflicts []ResourceConflict
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil || len(e.Conflicts) == 0 {
		return "booking conflict"
	}
	return fmt.Sprintf("booking conflicts with %d existing reservation hold(s)", len(e.Conflicts))
}

// InvalidTransitionError reports a status change not permitted by the lifecycle.
type InvalidTransitionError struct {
	From Status
	To   Status
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %q to %q", e.From, e.To)
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}
