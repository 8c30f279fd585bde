package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/civicdesk/caseflow/internal/application/port"
	"github.com/civicdesk/caseflow/internal/domain/entity"
	"github.com/civicdesk/caseflow/internal/domain/workflow"
)

// RequestRepository implements port.RequestRepository over sqlite.
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a request repository.
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{db: db, logger: logger}
}

const requestColumns = `
	id, reference, subject_id, workflow_definition_id, title,
	applicant_user_id, applicant_name, status, current_step_id,
	assigned_to_office_id, assigned_to_user_id, form_data, version,
	created_at, updated_at
`

// Create inserts a new service request and assigns its id.
func (r *RequestRepository) Create(ctx context.Context, req *entity.ServiceRequest) error {
	query := `
		INSERT INTO service_requests (
			reference, subject_id, workflow_definition_id, title,
			applicant_user_id, applicant_name, status, current_step_id,
			assigned_to_office_id, assigned_to_user_id, form_data, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := executorFrom(ctx, r.db).ExecContext(ctx, query,
		req.Reference,
		req.SubjectID,
		req.WorkflowDefinitionID,
		req.Title,
		req.ApplicantUserID,
		req.ApplicantName,
		req.Status,
		req.CurrentStepID,
		nullable(req.AssignedToOfficeID),
		nullable(req.AssignedToUserID),
		req.FormData,
		req.Version,
	)
	if err != nil {
		r.logger.Error("failed to create service request", zap.Error(err))
		return fmt.Errorf("create service request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	req.ID = id
	return nil
}

// GetByID returns the request with the given id, nil when absent.
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE id = ?`
	return r.scanOne(executorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
}

// GetByReference returns the request with the given public reference.
func (r *RequestRepository) GetByReference(ctx context.Context, reference string) (*entity.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE reference = ?`
	return r.scanOne(executorFrom(ctx, r.db).QueryRowContext(ctx, query, reference))
}

// Update writes the mutated request back, guarded by the version column.
// A row that moved on concurrently yields ErrStaleVersion; the in-memory
// version is bumped on success.
func (r *RequestRepository) Update(ctx context.Context, req *entity.ServiceRequest) error {
	query := `
		UPDATE service_requests SET
			status = ?, current_step_id = ?,
			assigned_to_office_id = ?, assigned_to_user_id = ?,
			form_data = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
	`

	result, err := executorFrom(ctx, r.db).ExecContext(ctx, query,
		req.Status,
		req.CurrentStepID,
		nullable(req.AssignedToOfficeID),
		nullable(req.AssignedToUserID),
		req.FormData,
		req.ID,
		req.Version,
	)
	if err != nil {
		r.logger.Error("failed to update service request", zap.Int64("id", req.ID), zap.Error(err))
		return fmt.Errorf("update service request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		existing, err := r.GetByID(ctx, req.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: request %d", workflow.ErrNotFound, req.ID)
		}
		return fmt.Errorf("%w: request %d at version %d", workflow.ErrStaleVersion, req.ID, req.Version)
	}

	req.Version++
	return nil
}

// List returns a page of requests, newest first.
func (r *RequestRepository) List(ctx context.Context, limit, offset int) ([]*entity.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + `
		FROM service_requests ORDER BY created_at DESC LIMIT ? OFFSET ?`
	return r.scanMany(ctx, query, limit, offset)
}

// ListByOffice returns the work queue of an office.
func (r *RequestRepository) ListByOffice(ctx context.Context, officeID string) ([]*entity.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + `
		FROM service_requests WHERE assigned_to_office_id = ? ORDER BY created_at ASC`
	return r.scanMany(ctx, query, officeID)
}

// ListByUser returns the requests claimed by a user.
func (r *RequestRepository) ListByUser(ctx context.Context, userID string) ([]*entity.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + `
		FROM service_requests WHERE assigned_to_user_id = ? ORDER BY created_at ASC`
	return r.scanMany(ctx, query, userID)
}

// ListActive returns every request not in a terminal status.
func (r *RequestRepository) ListActive(ctx context.Context) ([]*entity.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + `
		FROM service_requests WHERE status NOT IN (?, ?) ORDER BY created_at ASC`
	return r.scanMany(ctx, query, workflow.StateCompleted.String(), workflow.StateRejected.String())
}

func (r *RequestRepository) scanOne(row *sql.Row) (*entity.ServiceRequest, error) {
	var req entity.ServiceRequest
	var officeID, userID sql.NullString

	err := row.Scan(
		&req.ID,
		&req.Reference,
		&req.SubjectID,
		&req.WorkflowDefinitionID,
		&req.Title,
		&req.ApplicantUserID,
		&req.ApplicantName,
		&req.Status,
		&req.CurrentStepID,
		&officeID,
		&userID,
		&req.FormData,
		&req.Version,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("failed to scan service request", zap.Error(err))
		return nil, fmt.Errorf("get service request: %w", err)
	}

	req.AssignedToOfficeID = officeID.String
	req.AssignedToUserID = userID.String
	return &req, nil
}

func (r *RequestRepository) scanMany(ctx context.Context, query string, args ...interface{}) ([]*entity.ServiceRequest, error) {
	rows, err := executorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list service requests", zap.Error(err))
		return nil, fmt.Errorf("list service requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.ServiceRequest
	for rows.Next() {
		var req entity.ServiceRequest
		var officeID, userID sql.NullString

		err := rows.Scan(
			&req.ID,
			&req.Reference,
			&req.SubjectID,
			&req.WorkflowDefinitionID,
			&req.Title,
			&req.ApplicantUserID,
			&req.ApplicantName,
			&req.Status,
			&req.CurrentStepID,
			&officeID,
			&userID,
			&req.FormData,
			&req.Version,
			&req.CreatedAt,
			&req.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan service request: %w", err)
		}

		req.AssignedToOfficeID = officeID.String
		req.AssignedToUserID = userID.String
		requests = append(requests, &req)
	}

	return requests, rows.Err()
}

// nullable maps "" to NULL so unassigned offices and claimants stay NULL in
// the schema.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ port.RequestRepository = (*RequestRepository)(nil)
