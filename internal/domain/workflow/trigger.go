package workflow

// Trigger is an event that can cause a state transition.
type Trigger string

// Triggers fired by the live engine.
const (
	TriggerClaim             Trigger = "CLAIM"
	TriggerSubmit            Trigger = "SUBMIT"
	TriggerApprove           Trigger = "APPROVE"
	TriggerReject            Trigger = "REJECT"
	TriggerRequestCorrection Trigger = "REQUEST_CORRECTION"
)

// Triggers fired by simulation runs.
const (
	TriggerPause  Trigger = "PAUSE"
	TriggerResume Trigger = "RESUME"
	TriggerCancel Trigger = "CANCEL"
)

func (t Trigger) String() string {
	return string(t)
}
