package workflow

// State is a lifecycle state of a service request or of a simulation run.
// Both views share one transition encoding; request statuses and run
// statuses are drawn from the same set so a single machine serves both.
type State string

// Service request statuses.
const (
	StateNew                 State = "NEW"
	StateInProgress          State = "IN_PROGRESS"
	StatePendingReview       State = "PENDING_REVIEW"
	StatePendingApproval     State = "PENDING_APPROVAL"
	StateCorrectionRequested State = "CORRECTION_REQUESTED"
	StateCompleted           State = "COMPLETED"
	StateRejected            State = "REJECTED"
)

// Simulation run statuses. COMPLETED is shared with the request lifecycle.
const (
	StateRunning          State = "RUNNING"
	StatePaused           State = "PAUSED"
	StateAwaitingApproval State = "AWAITING_APPROVAL"
	StateCancelled        State = "CANCELLED"
	StateFailed           State = "FAILED"
)

var validStates = map[State]bool{
	StateNew:                 true,
	StateInProgress:          true,
	StatePendingReview:       true,
	StatePendingApproval:     true,
	StateCorrectionRequested: true,
	StateCompleted:           true,
	StateRejected:            true,
	StateRunning:             true,
	StatePaused:              true,
	StateAwaitingApproval:    true,
	StateCancelled:           true,
	StateFailed:              true,
}

var terminalStates = map[State]bool{
	StateCompleted: true,
	StateRejected:  true,
	StateCancelled: true,
	StateFailed:    true,
}

// IsTerminal reports whether no further transitions are accepted from s.
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsValid reports whether s is one of the defined lifecycle states.
func (s State) IsValid() bool {
	return validStates[s]
}

func (s State) String() string {
	return string(s)
}
