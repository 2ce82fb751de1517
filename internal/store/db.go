package store

import (
	"context"
	"database/sql"
)

// DBTX abstracts over *sql.DB and *sql.Tx so stores work inside and
// outside transactions.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
