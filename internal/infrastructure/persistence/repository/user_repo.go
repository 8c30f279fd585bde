package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/civicdesk/caseflow/internal/application/port"
	"github.com/civicdesk/caseflow/internal/domain/entity"
)

// UserRepository implements port.UserDirectory over the local users table.
// Deployments that federate to an external directory swap this out behind
// the same port.
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a user repository.
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserDirectory {
	return &UserRepository{db: db, logger: logger}
}

// GetByID returns the user with the given id, nil when absent.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	query := `SELECT id, name, role, office_id FROM users WHERE id = ?`

	var user entity.User
	err := executorFrom(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Role,
		&user.OfficeID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("failed to get user", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

var _ port.UserDirectory = (*UserRepository)(nil)
