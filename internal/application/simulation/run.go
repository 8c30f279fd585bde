// Package simulation runs a workflow definition in memory for authoring
// tools: step-by-step "what-if" execution with data validation, approval
// gates and pause/resume/cancel, without touching any live service request.
package simulation

import (
	"context"
	"fmt"

	"github.com/civicdesk/caseflow/internal/domain/entity"
	"github.com/civicdesk/caseflow/internal/domain/workflow"
)

// Run is one in-memory execution of a workflow definition. Runs are not
// safe for concurrent use; authoring tools drive them from a single
// goroutine.
type Run struct {
	def *entity.WorkflowDefinition

	stepIndex        int
	stepData         map[string]interface{}
	requiresApproval bool
	parallelSteps    []string
	lastDecision     *Decision

	machine workflow.Machine
}

// Decision records the outcome of an approval gate.
type Decision struct {
	StepID   string
	Approved bool
	Comments string
}

// NewRun starts a run at the first step of the definition.
func NewRun(def *entity.WorkflowDefinition) (*Run, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &Run{
		def:      def,
		stepData: make(map[string]interface{}),
		machine:  buildRunMachine(workflow.StateRunning),
	}, nil
}

// Status returns the run status.
func (r *Run) Status() workflow.State {
	return r.machine.State()
}

// StepIndex returns the zero-based index of the step up for execution.
func (r *Run) StepIndex() int {
	return r.stepIndex
}

// CurrentStep returns the step up for execution, nil once the run is past
// the last step.
func (r *Run) CurrentStep() *entity.WorkflowStep {
	if r.stepIndex >= len(r.def.Steps) {
		return nil
	}
	return &r.def.Steps[r.stepIndex]
}

// StepData returns the accumulated data bag of the run.
func (r *Run) StepData() map[string]interface{} {
	return r.stepData
}

// RequiresApproval reports whether the run is suspended at an approval
// gate.
func (r *Run) RequiresApproval() bool {
	return r.requiresApproval
}

// ParallelSteps lists the ids of parallel-flagged steps seen so far. The
// flag is informational; steps still execute in definition order.
func (r *Run) ParallelSteps() []string {
	return r.parallelSteps
}

// ExecuteStep validates data against the current step's form schema, merges
// it into the run's bag and advances. A step with an approval gate suspends
// the run in AWAITING_APPROVAL instead of advancing.
func (r *Run) ExecuteStep(ctx context.Context, data map[string]interface{}) error {
	if r.Status() != workflow.StateRunning {
		return fmt.Errorf("%w: cannot execute step in status %s", workflow.ErrInvalidState, r.Status())
	}

	step := r.CurrentStep()
	if step == nil {
		return fmt.Errorf("%w: run has no step at index %d", workflow.ErrNotFound, r.stepIndex)
	}

	if err := step.ValidateData(data); err != nil {
		return fmt.Errorf("%w: %v", workflow.ErrValidationFailed, err)
	}

	for k, v := range data {
		r.stepData[k] = v
	}
	if step.Parallel {
		r.parallelSteps = append(r.parallelSteps, step.ID)
	}

	needsApproval := step.ApprovalType != entity.ApprovalNone
	fireCtx := workflow.WithApprovalRequired(ctx, needsApproval)
	fireCtx = workflow.WithNextStep(fireCtx, r.stepIndex+1 < len(r.def.Steps))
	if err := r.machine.Fire(fireCtx, workflow.TriggerSubmit); err != nil {
		return err
	}

	if needsApproval {
		r.requiresApproval = true
		return nil
	}
	r.stepIndex++
	return nil
}

// ApproveStep resolves the pending approval gate: approved runs advance to
// the next step (or complete); refused runs fail terminally. The decision
// and its comments are kept on the run for the authoring tool to show.
func (r *Run) ApproveStep(ctx context.Context, approved bool, comments string) error {
	if r.Status() != workflow.StateAwaitingApproval {
		return fmt.Errorf("%w: no approval pending in status %s", workflow.ErrInvalidState, r.Status())
	}

	decision := &Decision{Approved: approved, Comments: comments}
	if step := r.CurrentStep(); step != nil {
		decision.StepID = step.ID
	}

	if !approved {
		if err := r.machine.Fire(ctx, workflow.TriggerReject); err != nil {
			return err
		}
		r.lastDecision = decision
		return nil
	}

	fireCtx := workflow.WithNextStep(ctx, r.stepIndex+1 < len(r.def.Steps))
	if err := r.machine.Fire(fireCtx, workflow.TriggerApprove); err != nil {
		return err
	}
	r.lastDecision = decision
	r.requiresApproval = false
	r.stepIndex++
	return nil
}

// LastDecision returns the most recent approval gate outcome, nil before
// any gate has been decided.
func (r *Run) LastDecision() *Decision {
	return r.lastDecision
}

// Pause suspends the run. Administrative override, permitted on any
// non-terminal run, including one waiting at an approval gate.
func (r *Run) Pause(ctx context.Context) error {
	return r.machine.Fire(ctx, workflow.TriggerPause)
}

// Resume continues a paused run, restoring the approval gate when one was
// pending at pause time.
func (r *Run) Resume(ctx context.Context) error {
	return r.machine.Fire(workflow.WithApprovalRequired(ctx, r.requiresApproval), workflow.TriggerResume)
}

// Cancel terminally abandons a non-terminal run.
func (r *Run) Cancel(ctx context.Context) error {
	if r.Status().IsTerminal() {
		return fmt.Errorf("%w: run already %s", workflow.ErrInvalidState, r.Status())
	}
	return r.machine.Fire(ctx, workflow.TriggerCancel)
}

// buildRunMachine configures the simulation lifecycle on the same canonical
// machine the live engine uses. SUBMIT either suspends at an approval gate,
// advances within the run, or completes it on the final step.
func buildRunMachine(initial workflow.State) workflow.Machine {
	b := workflow.NewBuilder()

	b.Configure(workflow.StateRunning).
		PermitIf(workflow.TriggerSubmit, workflow.StateAwaitingApproval, workflow.ApprovalRequired).
		PermitIf(workflow.TriggerSubmit, workflow.StateRunning, func(ctx context.Context) bool {
			return workflow.NoApprovalRequired(ctx) && workflow.HasNextStep(ctx)
		}).
		PermitIf(workflow.TriggerSubmit, workflow.StateCompleted, func(ctx context.Context) bool {
			return workflow.NoApprovalRequired(ctx) && workflow.IsFinalStep(ctx)
		}).
		Permit(workflow.TriggerPause, workflow.StatePaused).
		Permit(workflow.TriggerCancel, workflow.StateCancelled)

	b.Configure(workflow.StateAwaitingApproval).
		PermitIf(workflow.TriggerApprove, workflow.StateRunning, workflow.HasNextStep).
		PermitIf(workflow.TriggerApprove, workflow.StateCompleted, workflow.IsFinalStep).
		Permit(workflow.TriggerReject, workflow.StateFailed).
		Permit(workflow.TriggerPause, workflow.StatePaused).
		Permit(workflow.TriggerCancel, workflow.StateCancelled)

	b.Configure(workflow.StatePaused).
		PermitIf(workflow.TriggerResume, workflow.StateAwaitingApproval, workflow.ApprovalRequired).
		PermitIf(workflow.TriggerResume, workflow.StateRunning, workflow.NoApprovalRequired).
		Permit(workflow.TriggerCancel, workflow.StateCancelled)

	return b.Build(initial)
}
