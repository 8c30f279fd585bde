package port

import (
	"context"

	"github.com/civicdesk/caseflow/internal/domain/entity"
)

// RequestRepository defines persistence operations for ServiceRequest.
// Update is version-checked: implementations must reject a write whose
// Version no longer matches the stored row and report it as
// workflow.ErrStaleVersion.
type RequestRepository interface {
	Create(ctx context.Context, req *entity.ServiceRequest) error
	GetByID(ctx context.Context, id int64) (*entity.ServiceRequest, error)
	GetByReference(ctx context.Context, reference string) (*entity.ServiceRequest, error)
	Update(ctx context.Context, req *entity.ServiceRequest) error
	List(ctx context.Context, limit, offset int) ([]*entity.ServiceRequest, error)
	ListByOffice(ctx context.Context, officeID string) ([]*entity.ServiceRequest, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.ServiceRequest, error)
	ListActive(ctx context.Context) ([]*entity.ServiceRequest, error)
}

// HistoryRepository defines append-only persistence for the audit trail.
// There is deliberately no update or delete.
type HistoryRepository interface {
	Append(ctx context.Context, ev *entity.HistoryEvent) error
	ListByRequestID(ctx context.Context, requestID int64) ([]*entity.HistoryEvent, error)
}

// UserDirectory resolves principals supplied by the external auth layer.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// TransactionManager scopes repository calls to one transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
