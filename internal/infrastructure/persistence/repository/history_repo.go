package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/civicdesk/caseflow/internal/application/port"
	"github.com/civicdesk/caseflow/internal/domain/entity"
)

// HistoryRepository implements port.HistoryRepository over sqlite. The
// request_history table is append-only; there is no update or delete path.
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a history repository.
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{db: db, logger: logger}
}

// Append records one history event.
func (r *HistoryRepository) Append(ctx context.Context, ev *entity.HistoryEvent) error {
	query := `
		INSERT INTO request_history (
			request_id, step_id, step_name, actor_user_id, actor_name,
			action, comment, form_snapshot, documents, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := executorFrom(ctx, r.db).ExecContext(ctx, query,
		ev.RequestID,
		ev.StepID,
		ev.StepName,
		ev.ActorUserID,
		ev.ActorName,
		ev.Action,
		ev.Comment,
		ev.FormSnapshot,
		ev.DocumentsJSON,
		ev.Timestamp,
	)
	if err != nil {
		r.logger.Error("failed to append history event",
			zap.Int64("request_id", ev.RequestID),
			zap.String("action", ev.Action),
			zap.Error(err))
		return fmt.Errorf("append history event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	ev.ID = id
	return nil
}

// ListByRequestID returns the full trail of a request in append order.
func (r *HistoryRepository) ListByRequestID(ctx context.Context, requestID int64) ([]*entity.HistoryEvent, error) {
	query := `
		SELECT id, request_id, step_id, step_name, actor_user_id, actor_name,
		       action, comment, form_snapshot, documents, timestamp
		FROM request_history
		WHERE request_id = ?
		ORDER BY id ASC
	`

	rows, err := executorFrom(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("failed to list history", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var events []*entity.HistoryEvent
	for rows.Next() {
		var ev entity.HistoryEvent
		err := rows.Scan(
			&ev.ID,
			&ev.RequestID,
			&ev.StepID,
			&ev.StepName,
			&ev.ActorUserID,
			&ev.ActorName,
			&ev.Action,
			&ev.Comment,
			&ev.FormSnapshot,
			&ev.DocumentsJSON,
			&ev.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history event: %w", err)
		}
		events = append(events, &ev)
	}

	return events, rows.Err()
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
