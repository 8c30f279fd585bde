// Package engine implements the workflow state machine behind service
// requests: creation, claiming, data submission, approval gating,
// rejection and correction loops. All status-transition and authorization
// rules live here; the HTTP layer is a thin adapter over this package.
package engine

import (
	"context"

	"github.com/civicdesk/caseflow/internal/domain/entity"
)

// Logger is the minimal logging surface the engine needs.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CreateRequestInput carries the creation payload for a service request.
type CreateRequestInput struct {
	SubjectID       string
	Title           string
	InitialOfficeID string
	Data            map[string]interface{}
}

// Engine advances service requests through their workflow definition.
// Operations against the same request id are serialized; operations against
// different ids proceed independently.
type Engine interface {
	// CreateServiceRequest resolves the workflow for the subject, binds the
	// first step and records the creation in history.
	CreateServiceRequest(ctx context.Context, in CreateRequestInput, actor *entity.User) (*entity.ServiceRequest, error)

	// ClaimTask gives userID exclusive ownership of the request's current
	// step. Allowed while the request is NEW or CORRECTION_REQUESTED and
	// the task is unclaimed or already held by the same user.
	ClaimTask(ctx context.Context, requestID int64, userID string) (*entity.ServiceRequest, error)

	// SubmitTaskData accepts the claimant's form data and documents,
	// merges the data into the request's bag and moves the request to
	// PENDING_APPROVAL or PENDING_REVIEW depending on the step's approval
	// type.
	SubmitTaskData(ctx context.Context, requestID int64, userID string, data map[string]interface{}, docs []entity.UploadedDocument) (*entity.ServiceRequest, error)

	// ApproveStep records the approval and advances the request to the
	// next step (or completes it). nextOfficeID optionally overrides the
	// office the next step is assigned to.
	ApproveStep(ctx context.Context, requestID int64, userID, comment, nextOfficeID string) (*entity.ServiceRequest, error)

	// RejectStep terminally rejects the request.
	RejectStep(ctx context.Context, requestID int64, userID, reason string) (*entity.ServiceRequest, error)

	// RequestCorrection rewinds a non-terminal request to an earlier step
	// for rework. Department heads only.
	RequestCorrection(ctx context.Context, requestID int64, userID, targetStepID, comment string) (*entity.ServiceRequest, error)
}
