package simulation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdesk/caseflow/internal/domain/entity"
	"github.com/civicdesk/caseflow/internal/domain/workflow"
)

func simDefinition() *entity.WorkflowDefinition {
	return &entity.WorkflowDefinition{
		ID:        "sim-v1",
		Name:      "Simulated",
		SubjectID: "sim",
		Version:   1,
		Active:    true,
		Steps: []entity.WorkflowStep{
			{
				ID:           "collect",
				Name:         "Collect",
				OfficeID:     "office-a",
				ApprovalType: entity.ApprovalNone,
				FormFields: []entity.FormField{
					{Key: "email", Type: entity.FieldEmail, Required: true},
				},
			},
			{
				ID:           "verify",
				Name:         "Verify",
				OfficeID:     "office-b",
				ApprovalType: entity.ApprovalDepartmentHead,
				Parallel:     true,
			},
			{
				ID:           "finish",
				Name:         "Finish",
				OfficeID:     "office-c",
				ApprovalType: entity.ApprovalNone,
			},
		},
	}
}

func TestNewRun(t *testing.T) {
	run, err := NewRun(simDefinition())
	require.NoError(t, err)

	assert.Equal(t, workflow.StateRunning, run.Status())
	assert.Equal(t, 0, run.StepIndex())
	assert.Equal(t, "collect", run.CurrentStep().ID)
	assert.False(t, run.RequiresApproval())
}

func TestNewRun_InvalidDefinition(t *testing.T) {
	_, err := NewRun(&entity.WorkflowDefinition{ID: "empty"})
	require.Error(t, err)
}

func TestRun_ExecuteStep(t *testing.T) {
	run, err := NewRun(simDefinition())
	require.NoError(t, err)

	err = run.ExecuteStep(context.Background(), map[string]interface{}{"email": "a@example.gov"})
	require.NoError(t, err)

	assert.Equal(t, workflow.StateRunning, run.Status())
	assert.Equal(t, 1, run.StepIndex())
	assert.Equal(t, "a@example.gov", run.StepData()["email"])
}

func TestRun_ExecuteStep_ValidationFailure(t *testing.T) {
	run, err := NewRun(simDefinition())
	require.NoError(t, err)

	err = run.ExecuteStep(context.Background(), map[string]interface{}{"email": "nope"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, workflow.ErrValidationFailed))

	// Run stays on the step, data is not merged.
	assert.Equal(t, 0, run.StepIndex())
	assert.Empty(t, run.StepData())
}

func TestRun_ApprovalGate(t *testing.T) {
	run, err := NewRun(simDefinition())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, run.ExecuteStep(ctx, map[string]interface{}{"email": "a@example.gov"}))

	// Second step suspends for department approval.
	require.NoError(t, run.ExecuteStep(ctx, nil))
	assert.Equal(t, workflow.StateAwaitingApproval, run.Status())
	assert.True(t, run.RequiresApproval())
	assert.Equal(t, 1, run.StepIndex())

	// Executing while suspended is refused.
	err = run.ExecuteStep(ctx, nil)
	assert.True(t, errors.Is(err, workflow.ErrInvalidState))

	require.NoError(t, run.ApproveStep(ctx, true, "fine"))
	assert.Equal(t, workflow.StateRunning, run.Status())
	assert.False(t, run.RequiresApproval())
	assert.Equal(t, 2, run.StepIndex())

	decision := run.LastDecision()
	require.NotNil(t, decision)
	assert.Equal(t, "verify", decision.StepID)
	assert.True(t, decision.Approved)
	assert.Equal(t, "fine", decision.Comments)
}

func TestRun_LastDecision_NilBeforeAnyGate(t *testing.T) {
	run, err := NewRun(simDefinition())
	require.NoError(t, err)

	assert.Nil(t, run.LastDecision())
	require.NoError(t, run.ExecuteStep(context.Background(), map[string]interface{}{"email": "a@example.gov"}))
	assert.Nil(t, run.LastDecision())
}

func TestRun_ApprovalRefused(t *testing.T) {
	run, err := NewRun(simDefinition())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, run.ExecuteStep(ctx, map[string]interface{}{"email": "a@example.gov"}))
	require.NoError(t, run.ExecuteStep(ctx, nil))

	require.NoError(t, run.ApproveStep(ctx, false, "not acceptable"))
	assert.Equal(t, workflow.StateFailed, run.Status())
	assert.True(t, run.Status().IsTerminal())

	decision := run.LastDecision()
	require.NotNil(t, decision)
	assert.False(t, decision.Approved)
	assert.Equal(t, "not acceptable", decision.Comments)
}

func TestRun_Completion(t *testing.T) {
	run, err := NewRun(simDefinition())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, run.ExecuteStep(ctx, map[string]interface{}{"email": "a@example.gov"}))
	require.NoError(t, run.ExecuteStep(ctx, nil))
	require.NoError(t, run.ApproveStep(ctx, true, ""))
	require.NoError(t, run.ExecuteStep(ctx, nil))

	assert.Equal(t, workflow.StateCompleted, run.Status())
	assert.Nil(t, run.CurrentStep())
	assert.Equal(t, []string{"verify"}, run.ParallelSteps())
}

func TestRun_PauseResume(t *testing.T) {
	run, err := NewRun(simDefinition())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, run.Pause(ctx))
	assert.Equal(t, workflow.StatePaused, run.Status())

	require.NoError(t, run.Resume(ctx))
	assert.Equal(t, workflow.StateRunning, run.Status())
}

func TestRun_PauseResume_RestoresApprovalGate(t *testing.T) {
	run, err := NewRun(simDefinition())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, run.ExecuteStep(ctx, map[string]interface{}{"email": "a@example.gov"}))
	require.NoError(t, run.ExecuteStep(ctx, nil))
	require.Equal(t, workflow.StateAwaitingApproval, run.Status())

	require.NoError(t, run.Pause(ctx))
	require.NoError(t, run.Resume(ctx))

	// The pending gate survives the pause.
	assert.Equal(t, workflow.StateAwaitingApproval, run.Status())
	require.NoError(t, run.ApproveStep(ctx, true, ""))
	assert.Equal(t, workflow.StateRunning, run.Status())
}

func TestRun_Cancel(t *testing.T) {
	run, err := NewRun(simDefinition())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, run.Cancel(ctx))
	assert.Equal(t, workflow.StateCancelled, run.Status())

	// Terminal runs refuse everything.
	err = run.Cancel(ctx)
	assert.True(t, errors.Is(err, workflow.ErrInvalidState))
	err = run.Pause(ctx)
	assert.True(t, errors.Is(err, workflow.ErrInvalidTransition))
}
