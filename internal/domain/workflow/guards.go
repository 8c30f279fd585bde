package workflow

import "context"

// Guard inputs travel on the context so the one transition table serves both
// the id-based engine and the index-based simulation runner. Callers set the
// values with the With* helpers before firing; guards read them with typed
// accessors that default to false when unset.

type guardKey int

const (
	approvalRequiredKey guardKey = iota
	nextStepKey
)

// WithApprovalRequired marks whether the current step needs a department
// head decision before advancing.
func WithApprovalRequired(ctx context.Context, required bool) context.Context {
	return context.WithValue(ctx, approvalRequiredKey, required)
}

// WithNextStep marks whether a further step exists after the current one.
func WithNextStep(ctx context.Context, hasNext bool) context.Context {
	return context.WithValue(ctx, nextStepKey, hasNext)
}

// ApprovalRequired is a guard passing when the context says the step needs
// department head approval.
func ApprovalRequired(ctx context.Context) bool {
	v, _ := ctx.Value(approvalRequiredKey).(bool)
	return v
}

// NoApprovalRequired is the complement of ApprovalRequired.
func NoApprovalRequired(ctx context.Context) bool {
	return !ApprovalRequired(ctx)
}

// HasNextStep is a guard passing when a further step exists.
func HasNextStep(ctx context.Context) bool {
	v, _ := ctx.Value(nextStepKey).(bool)
	return v
}

// IsFinalStep is the complement of HasNextStep.
func IsFinalStep(ctx context.Context) bool {
	return !HasNextStep(ctx)
}
