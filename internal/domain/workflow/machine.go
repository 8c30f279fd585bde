package workflow

import "context"

// Machine tracks a current state and validates trigger-driven transitions.
type Machine interface {
	// State returns the current state.
	State() State

	// CanFire reports whether the trigger has at least one configured
	// transition from the current state. Guards are not evaluated.
	CanFire(trigger Trigger) bool

	// Fire executes the trigger, moving to the first target state whose
	// guard passes. Returns ErrInvalidTransition if the trigger is not
	// configured, ErrGuardFailed if every guard blocks it.
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers lists the triggers configured for the current state.
	PermittedTriggers() []Trigger
}

// GuardFunc decides whether a configured transition may be taken. Guards
// read their inputs from the context; see guards.go for the keys the engine
// and the simulation runner populate.
type GuardFunc func(ctx context.Context) bool
