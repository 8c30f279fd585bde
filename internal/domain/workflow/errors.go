package workflow

import "errors"

// Machine-level errors.
var (
	// ErrInvalidTransition is returned when a trigger is not permitted in the
	// current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when every transition for a trigger is
	// blocked by its guard.
	ErrGuardFailed = errors.New("guard condition failed")
)

// Operation error taxonomy. Every guard violation surfaces to the caller as
// one of these; callers distinguish them with errors.Is.
var (
	// ErrNotFound covers missing workflows, steps, requests and users.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned on a role or office mismatch.
	ErrUnauthorized = errors.New("actor not authorized for this operation")

	// ErrInvalidState is returned when the operation is not valid for the
	// request's current status.
	ErrInvalidState = errors.New("operation not valid in current state")

	// ErrAlreadyClaimed is returned when the task is held by another user.
	ErrAlreadyClaimed = errors.New("task already claimed by another user")

	// ErrValidationFailed is returned when submitted step data violates the
	// step's form schema.
	ErrValidationFailed = errors.New("step data validation failed")

	// ErrStaleVersion is returned when a write lost a concurrent update race.
	ErrStaleVersion = errors.New("request was modified concurrently")

	// ErrOfficeUnresolved is returned when advancing or rewinding would leave
	// the request without an owning office.
	ErrOfficeUnresolved = errors.New("no assignable office for target step")
)
