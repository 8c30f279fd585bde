package workflow

// Action identifies what a history event records. The vocabulary is closed:
// the UI and the query side match on these constants, never on substrings.
// Free-text detail belongs in the event's comment field.
type Action string

const (
	ActionCreated             Action = "CREATED"
	ActionTaskClaimed         Action = "TASK_CLAIMED"
	ActionSubmitted           Action = "SUBMITTED"
	ActionApproved            Action = "APPROVED"
	ActionRejected            Action = "REJECTED"
	ActionCorrectionRequested Action = "CORRECTION_REQUESTED"
	ActionForwarded           Action = "FORWARDED"
)

var validActions = map[Action]bool{
	ActionCreated:             true,
	ActionTaskClaimed:         true,
	ActionSubmitted:           true,
	ActionApproved:            true,
	ActionRejected:            true,
	ActionCorrectionRequested: true,
	ActionForwarded:           true,
}

// IsValid reports whether a is one of the defined history actions.
func (a Action) IsValid() bool {
	return validActions[a]
}

func (a Action) String() string {
	return string(a)
}
