package repository

import (
	"context"
	"database/sql"

	"github.com/civicdesk/caseflow/internal/application/port"
	"github.com/civicdesk/caseflow/pkg/database"
)

type contextKey string

const txKey contextKey = "tx"

// executor covers both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// executorFrom returns the transaction carried by the context, or the plain
// connection pool.
func executorFrom(ctx context.Context, db *sql.DB) executor {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return db
}

// TxManager implements port.TransactionManager over the sqlite connection,
// scoping repository calls inside fn to one transaction via the context.
type TxManager struct {
	db *database.DB
}

// NewTxManager creates a transaction manager.
func NewTxManager(db *database.DB) *TxManager {
	return &TxManager{db: db}
}

// WithTransaction runs fn with a transaction on the context; the
// repositories pick it up through executorFrom.
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.db.WithTransaction(func(tx *sql.Tx) error {
		return fn(context.WithValue(ctx, txKey, tx))
	})
}

var _ port.TransactionManager = (*TxManager)(nil)
