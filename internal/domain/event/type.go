package event

// Type identifies a domain event.
type Type string

const (
	TypeRequestCreated      Type = "request.created"
	TypeTaskClaimed         Type = "task.claimed"
	TypeTaskSubmitted       Type = "task.submitted"
	TypeStepApproved        Type = "step.approved"
	TypeRequestRejected     Type = "request.rejected"
	TypeCorrectionRequested Type = "correction.requested"
	TypeRequestForwarded    Type = "request.forwarded"
	TypeRequestCompleted    Type = "request.completed"
	TypeStepOverdue         Type = "step.overdue"
)

func (t Type) String() string {
	return string(t)
}

// IsValid reports whether t is one of the defined event types.
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestCreated,
		TypeTaskClaimed,
		TypeTaskSubmitted,
		TypeStepApproved,
		TypeRequestRejected,
		TypeCorrectionRequested,
		TypeRequestForwarded,
		TypeRequestCompleted,
		TypeStepOverdue:
		return true
	default:
		return false
	}
}
