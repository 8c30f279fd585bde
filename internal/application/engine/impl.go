package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/civicdesk/caseflow/internal/application/dispatcher"
	"github.com/civicdesk/caseflow/internal/application/port"
	"github.com/civicdesk/caseflow/internal/domain/entity"
	"github.com/civicdesk/caseflow/internal/domain/event"
	"github.com/civicdesk/caseflow/internal/domain/workflow"
)

type engineImpl struct {
	definitions port.DefinitionRegistry
	requests    port.RequestRepository
	history     port.HistoryRepository
	users       port.UserDirectory
	txManager   port.TransactionManager
	dispatcher  dispatcher.Dispatcher
	logger      Logger

	locks *keyedMutex
}

// Option configures the engine.
type Option func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting domain events.
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// New creates the workflow engine.
func New(
	definitions port.DefinitionRegistry,
	requests port.RequestRepository,
	history port.HistoryRepository,
	users port.UserDirectory,
	txManager port.TransactionManager,
	logger Logger,
	opts ...Option,
) Engine {
	e := &engineImpl{
		definitions: definitions,
		requests:    requests,
		history:     history,
		users:       users,
		txManager:   txManager,
		logger:      logger,
		locks:       newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engineImpl) CreateServiceRequest(ctx context.Context, in CreateRequestInput, actor *entity.User) (*entity.ServiceRequest, error) {
	if actor == nil {
		return nil, fmt.Errorf("%w: acting user", workflow.ErrNotFound)
	}

	def, err := e.definitions.GetBySubject(in.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: workflow for subject %s", workflow.ErrNotFound, in.SubjectID)
	}
	first := def.FirstStep()

	office := in.InitialOfficeID
	if office == "" {
		office = first.FirstAssignableOffice()
	}
	if office == "" {
		office = first.OfficeID
	}

	formData, err := entity.MarshalData(in.Data)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	req := &entity.ServiceRequest{
		Reference:            uuid.NewString(),
		SubjectID:            in.SubjectID,
		WorkflowDefinitionID: def.ID,
		Title:                in.Title,
		ApplicantUserID:      actor.ID,
		ApplicantName:        actor.Name,
		Status:               workflow.StateNew.String(),
		CurrentStepID:        first.ID,
		AssignedToOfficeID:   office,
		FormData:             formData,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.requests.Create(txCtx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		ev := newHistoryEvent(req, first, actor, workflow.ActionCreated, "")
		ev.FormSnapshot = formData
		return e.history.Append(txCtx, ev)
	})
	if err != nil {
		e.logger.Error("failed to create service request", "subject_id", in.SubjectID, "error", err)
		return nil, err
	}

	e.logger.Info("service request created",
		"request_id", req.ID,
		"reference", req.Reference,
		"workflow_id", def.ID,
		"office_id", office,
	)
	e.emit(ctx, event.TypeRequestCreated, req, map[string]interface{}{
		"workflow_definition_id": def.ID,
		"step_id":                first.ID,
	})
	return req, nil
}

func (e *engineImpl) ClaimTask(ctx context.Context, requestID int64, userID string) (*entity.ServiceRequest, error) {
	unlock := e.locks.lock(requestID)
	defer unlock()

	req, user, def, err := e.load(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}

	if req.AssignedToUserID != "" && req.AssignedToUserID != userID {
		return nil, fmt.Errorf("%w: held by %s", workflow.ErrAlreadyClaimed, req.AssignedToUserID)
	}

	machine := BuildRequestMachine(workflow.State(req.Status))
	if !machine.CanFire(workflow.TriggerClaim) {
		return nil, fmt.Errorf("%w: cannot claim request in status %s", workflow.ErrInvalidState, req.Status)
	}

	if err := machine.Fire(ctx, workflow.TriggerClaim); err != nil {
		return nil, err
	}

	req.AssignedToUserID = userID
	req.Status = machine.State().String()

	step := def.Step(req.CurrentStepID)
	if err := e.commit(ctx, req, newHistoryEvent(req, step, user, workflow.ActionTaskClaimed, "")); err != nil {
		return nil, err
	}

	e.logger.Info("task claimed", "request_id", req.ID, "user_id", userID)
	e.emit(ctx, event.TypeTaskClaimed, req, map[string]interface{}{"user_id": userID})
	return req, nil
}

func (e *engineImpl) SubmitTaskData(ctx context.Context, requestID int64, userID string, data map[string]interface{}, docs []entity.UploadedDocument) (*entity.ServiceRequest, error) {
	unlock := e.locks.lock(requestID)
	defer unlock()

	req, user, def, err := e.load(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}

	if req.AssignedToUserID != userID {
		return nil, fmt.Errorf("%w: only the claimant may submit", workflow.ErrUnauthorized)
	}

	step := def.Step(req.CurrentStepID)
	if step == nil {
		return nil, fmt.Errorf("%w: step %s in workflow %s", workflow.ErrNotFound, req.CurrentStepID, def.ID)
	}

	if err := step.ValidateData(data); err != nil {
		return nil, fmt.Errorf("%w: %v", workflow.ErrValidationFailed, err)
	}

	machine := BuildRequestMachine(workflow.State(req.Status))
	fireCtx := workflow.WithApprovalRequired(ctx, step.NeedsDepartmentApproval())
	if err := machine.Fire(fireCtx, workflow.TriggerSubmit); err != nil {
		return nil, fmt.Errorf("%w: cannot submit in status %s", workflow.ErrInvalidState, req.Status)
	}

	snapshot, err := entity.MarshalData(data)
	if err != nil {
		return nil, err
	}
	if err := req.MergeData(data); err != nil {
		return nil, err
	}
	req.Status = machine.State().String()

	ev := newHistoryEvent(req, step, user, workflow.ActionSubmitted, "")
	ev.FormSnapshot = snapshot
	if err := ev.SetDocuments(docs); err != nil {
		return nil, err
	}
	if err := e.commit(ctx, req, ev); err != nil {
		return nil, err
	}

	e.logger.Info("task data submitted",
		"request_id", req.ID,
		"step_id", step.ID,
		"status", req.Status,
		"documents", len(docs),
	)
	e.emit(ctx, event.TypeTaskSubmitted, req, map[string]interface{}{
		"step_id": step.ID,
		"status":  req.Status,
	})
	return req, nil
}

func (e *engineImpl) ApproveStep(ctx context.Context, requestID int64, userID, comment, nextOfficeID string) (*entity.ServiceRequest, error) {
	unlock := e.locks.lock(requestID)
	defer unlock()

	req, user, def, err := e.load(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}

	machine := BuildRequestMachine(workflow.State(req.Status))
	if !machine.CanFire(workflow.TriggerApprove) {
		return nil, fmt.Errorf("%w: cannot approve request in status %s", workflow.ErrInvalidState, req.Status)
	}
	if err := e.authorizeDecision(req, user); err != nil {
		return nil, err
	}

	step := def.Step(req.CurrentStepID)
	if step == nil {
		return nil, fmt.Errorf("%w: step %s in workflow %s", workflow.ErrNotFound, req.CurrentStepID, def.ID)
	}
	next := def.NextStepAfter(step.ID)

	// Resolve the next owning office before firing: an approval that would
	// strand the request without an office is refused outright.
	nextOffice := ""
	if next != nil {
		nextOffice = nextOfficeID
		if nextOffice == "" {
			nextOffice = next.FirstAssignableOffice()
		}
		if nextOffice == "" {
			return nil, fmt.Errorf("%w: step %s", workflow.ErrOfficeUnresolved, next.ID)
		}
	}

	fireCtx := workflow.WithNextStep(ctx, next != nil)
	if err := machine.Fire(fireCtx, workflow.TriggerApprove); err != nil {
		return nil, err
	}

	approvedEv := newHistoryEvent(req, step, user, workflow.ActionApproved, comment)

	events := []*entity.HistoryEvent{approvedEv}
	if next != nil {
		req.CurrentStepID = next.ID
		req.AssignedToOfficeID = nextOffice
		req.AssignedToUserID = ""
		req.Status = machine.State().String()

		forwardedEv := newHistoryEvent(req, next, user, workflow.ActionForwarded,
			fmt.Sprintf("forwarded to office %s", nextOffice))
		events = append(events, forwardedEv)
	} else {
		req.Status = machine.State().String()
		req.AssignedToOfficeID = ""
		req.AssignedToUserID = ""
	}

	if err := e.commit(ctx, req, events...); err != nil {
		return nil, err
	}

	e.logger.Info("step approved",
		"request_id", req.ID,
		"step_id", step.ID,
		"approver_id", userID,
		"status", req.Status,
	)
	e.emit(ctx, event.TypeStepApproved, req, map[string]interface{}{
		"step_id":     step.ID,
		"approver_id": userID,
	})
	if next != nil {
		e.emit(ctx, event.TypeRequestForwarded, req, map[string]interface{}{
			"step_id":   next.ID,
			"office_id": nextOffice,
		})
	} else {
		e.emit(ctx, event.TypeRequestCompleted, req, nil)
	}
	return req, nil
}

func (e *engineImpl) RejectStep(ctx context.Context, requestID int64, userID, reason string) (*entity.ServiceRequest, error) {
	unlock := e.locks.lock(requestID)
	defer unlock()

	req, user, def, err := e.load(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}

	machine := BuildRequestMachine(workflow.State(req.Status))
	if !machine.CanFire(workflow.TriggerReject) {
		return nil, fmt.Errorf("%w: cannot reject request in status %s", workflow.ErrInvalidState, req.Status)
	}
	if err := e.authorizeDecision(req, user); err != nil {
		return nil, err
	}

	step := def.Step(req.CurrentStepID)
	if err := machine.Fire(ctx, workflow.TriggerReject); err != nil {
		return nil, err
	}

	req.Status = machine.State().String()

	if err := e.commit(ctx, req, newHistoryEvent(req, step, user, workflow.ActionRejected, reason)); err != nil {
		return nil, err
	}

	e.logger.Info("request rejected", "request_id", req.ID, "reviewer_id", userID)
	e.emit(ctx, event.TypeRequestRejected, req, map[string]interface{}{"reason": reason})
	return req, nil
}

func (e *engineImpl) RequestCorrection(ctx context.Context, requestID int64, userID, targetStepID, comment string) (*entity.ServiceRequest, error) {
	unlock := e.locks.lock(requestID)
	defer unlock()

	req, user, def, err := e.load(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}

	if !user.IsDepartmentHead() {
		return nil, fmt.Errorf("%w: only a department head may request correction", workflow.ErrUnauthorized)
	}

	machine := BuildRequestMachine(workflow.State(req.Status))
	if !machine.CanFire(workflow.TriggerRequestCorrection) {
		return nil, fmt.Errorf("%w: cannot rewind request in status %s", workflow.ErrInvalidState, req.Status)
	}

	target := def.Step(targetStepID)
	if target == nil {
		return nil, fmt.Errorf("%w: step %s in workflow %s", workflow.ErrNotFound, targetStepID, def.ID)
	}
	office := target.FirstAssignableOffice()
	if office == "" {
		return nil, fmt.Errorf("%w: step %s", workflow.ErrOfficeUnresolved, target.ID)
	}

	if err := machine.Fire(ctx, workflow.TriggerRequestCorrection); err != nil {
		return nil, err
	}

	req.CurrentStepID = target.ID
	req.AssignedToOfficeID = office
	req.AssignedToUserID = ""
	req.Status = machine.State().String()

	if err := e.commit(ctx, req, newHistoryEvent(req, target, user, workflow.ActionCorrectionRequested, comment)); err != nil {
		return nil, err
	}

	e.logger.Info("correction requested",
		"request_id", req.ID,
		"target_step_id", target.ID,
		"office_id", office,
	)
	e.emit(ctx, event.TypeCorrectionRequested, req, map[string]interface{}{
		"target_step_id": target.ID,
		"office_id":      office,
	})
	return req, nil
}

// load fetches the request, the acting user and the bound definition,
// mapping each miss to ErrNotFound.
func (e *engineImpl) load(ctx context.Context, requestID int64, userID string) (*entity.ServiceRequest, *entity.User, *entity.WorkflowDefinition, error) {
	req, err := e.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, nil, nil, err
	}
	if req == nil {
		return nil, nil, nil, fmt.Errorf("%w: request %d", workflow.ErrNotFound, requestID)
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, nil, err
	}
	if user == nil {
		return nil, nil, nil, fmt.Errorf("%w: user %s", workflow.ErrNotFound, userID)
	}

	def, err := e.definitions.GetByID(req.WorkflowDefinitionID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: workflow %s", workflow.ErrNotFound, req.WorkflowDefinitionID)
	}

	return req, user, def, nil
}

// authorizeDecision enforces the approve/reject gate: a department head may
// decide any pending step; a section head only steps pending review in
// their own office.
func (e *engineImpl) authorizeDecision(req *entity.ServiceRequest, user *entity.User) error {
	if user.IsDepartmentHead() {
		return nil
	}
	if user.IsSectionHead() {
		if req.Status != workflow.StatePendingReview.String() {
			return fmt.Errorf("%w: section head cannot decide status %s", workflow.ErrUnauthorized, req.Status)
		}
		if user.OfficeID != req.AssignedToOfficeID {
			return fmt.Errorf("%w: request belongs to office %s", workflow.ErrUnauthorized, req.AssignedToOfficeID)
		}
		return nil
	}
	return fmt.Errorf("%w: role %s cannot approve or reject", workflow.ErrUnauthorized, user.Role)
}

// commit persists the mutated request and appends history atomically. The
// version check inside Update turns lost-update races into ErrStaleVersion.
func (e *engineImpl) commit(ctx context.Context, req *entity.ServiceRequest, events ...*entity.HistoryEvent) error {
	req.UpdatedAt = time.Now()
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.requests.Update(txCtx, req); err != nil {
			return err
		}
		for _, ev := range events {
			if err := e.history.Append(txCtx, ev); err != nil {
				return fmt.Errorf("append history: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		e.logger.Error("transition commit failed", "request_id", req.ID, "error", err)
	}
	return err
}

func (e *engineImpl) emit(ctx context.Context, t event.Type, req *entity.ServiceRequest, payload map[string]interface{}) {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.DispatchAsync(ctx, event.New(t, req.ID, req.Reference, payload))
}

func newHistoryEvent(req *entity.ServiceRequest, step *entity.WorkflowStep, actor *entity.User, action workflow.Action, comment string) *entity.HistoryEvent {
	ev := &entity.HistoryEvent{
		RequestID:   req.ID,
		ActorUserID: actor.ID,
		ActorName:   actor.Name,
		Action:      action.String(),
		Comment:     comment,
		Timestamp:   time.Now(),
	}
	if step != nil {
		ev.StepID = step.ID
		ev.StepName = step.Name
	}
	return ev
}
