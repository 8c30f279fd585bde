package service

import (
	"context"
	"fmt"

	"github.com/civicdesk/caseflow/internal/application/port"
	"github.com/civicdesk/caseflow/internal/domain/entity"
	"github.com/civicdesk/caseflow/internal/domain/workflow"
)

// Logger is the minimal logging surface the query service needs.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// TaskQueryService derives work queues and request views from the store.
// It is a pure read-side projection; all writes go through the engine.
type TaskQueryService interface {
	// TasksForOffice lists requests currently assigned to an office.
	TasksForOffice(ctx context.Context, officeID string) ([]*entity.ServiceRequest, error)

	// TasksForUser lists requests currently claimed by a user.
	TasksForUser(ctx context.Context, userID string) ([]*entity.ServiceRequest, error)

	// GetRequest returns one request by id.
	GetRequest(ctx context.Context, id int64) (*entity.ServiceRequest, error)

	// GetRequestByReference returns one request by its public reference.
	GetRequestByReference(ctx context.Context, reference string) (*entity.ServiceRequest, error)

	// History returns the audit trail of a request in append order.
	History(ctx context.Context, requestID int64) ([]*entity.HistoryEvent, error)

	// ListRequests returns a page of requests, newest first.
	ListRequests(ctx context.Context, limit, offset int) ([]*entity.ServiceRequest, error)
}

type taskQueryImpl struct {
	requests port.RequestRepository
	history  port.HistoryRepository
	logger   Logger
}

// NewTaskQueryService creates the read-side projection service.
func NewTaskQueryService(requests port.RequestRepository, history port.HistoryRepository, logger Logger) TaskQueryService {
	return &taskQueryImpl{requests: requests, history: history, logger: logger}
}

func (s *taskQueryImpl) TasksForOffice(ctx context.Context, officeID string) ([]*entity.ServiceRequest, error) {
	tasks, err := s.requests.ListByOffice(ctx, officeID)
	if err != nil {
		s.logger.Error("failed to list office tasks", "office_id", officeID, "error", err)
		return nil, err
	}
	return tasks, nil
}

func (s *taskQueryImpl) TasksForUser(ctx context.Context, userID string) ([]*entity.ServiceRequest, error) {
	tasks, err := s.requests.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list user tasks", "user_id", userID, "error", err)
		return nil, err
	}
	return tasks, nil
}

func (s *taskQueryImpl) GetRequest(ctx context.Context, id int64) (*entity.ServiceRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request %d", workflow.ErrNotFound, id)
	}
	return req, nil
}

func (s *taskQueryImpl) GetRequestByReference(ctx context.Context, reference string) (*entity.ServiceRequest, error) {
	req, err := s.requests.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request %s", workflow.ErrNotFound, reference)
	}
	return req, nil
}

func (s *taskQueryImpl) History(ctx context.Context, requestID int64) ([]*entity.HistoryEvent, error) {
	events, err := s.history.ListByRequestID(ctx, requestID)
	if err != nil {
		s.logger.Error("failed to load request history", "request_id", requestID, "error", err)
		return nil, err
	}
	return events, nil
}

func (s *taskQueryImpl) ListRequests(ctx context.Context, limit, offset int) ([]*entity.ServiceRequest, error) {
	return s.requests.List(ctx, limit, offset)
}
