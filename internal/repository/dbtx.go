package repository

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql operations shared by *sql.DB and
// *sql.Tx. Stock and price operations take it explicitly so the caller
// decides the transaction scope instead of relying on an ambient handle.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
