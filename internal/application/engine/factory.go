package engine

import (
	"github.com/civicdesk/caseflow/internal/domain/workflow"
)

// BuildRequestMachine configures the service-request lifecycle. Submission
// and approval outcomes depend on guard inputs the engine places on the
// context: whether the current step needs department head approval, and
// whether a further step exists.
func BuildRequestMachine(initial workflow.State) workflow.Machine {
	b := workflow.NewBuilder()

	b.Configure(workflow.StateNew).
		Permit(workflow.TriggerClaim, workflow.StateInProgress).
		Permit(workflow.TriggerRequestCorrection, workflow.StateCorrectionRequested)

	b.Configure(workflow.StateCorrectionRequested).
		Permit(workflow.TriggerClaim, workflow.StateInProgress).
		Permit(workflow.TriggerRequestCorrection, workflow.StateCorrectionRequested)

	b.Configure(workflow.StateInProgress).
		PermitIf(workflow.TriggerSubmit, workflow.StatePendingApproval, workflow.ApprovalRequired).
		PermitIf(workflow.TriggerSubmit, workflow.StatePendingReview, workflow.NoApprovalRequired).
		Permit(workflow.TriggerRequestCorrection, workflow.StateCorrectionRequested)

	b.Configure(workflow.StatePendingReview).
		PermitIf(workflow.TriggerApprove, workflow.StateNew, workflow.HasNextStep).
		PermitIf(workflow.TriggerApprove, workflow.StateCompleted, workflow.IsFinalStep).
		Permit(workflow.TriggerReject, workflow.StateRejected).
		Permit(workflow.TriggerRequestCorrection, workflow.StateCorrectionRequested)

	b.Configure(workflow.StatePendingApproval).
		PermitIf(workflow.TriggerApprove, workflow.StateNew, workflow.HasNextStep).
		PermitIf(workflow.TriggerApprove, workflow.StateCompleted, workflow.IsFinalStep).
		Permit(workflow.TriggerReject, workflow.StateRejected).
		Permit(workflow.TriggerRequestCorrection, workflow.StateCorrectionRequested)

	// COMPLETED and REJECTED are terminal: no outgoing transitions.

	return b.Build(initial)
}
