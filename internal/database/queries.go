package database

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is the subset of *sql.DB / *sql.Tx the query layer needs.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries provides typed access to all tables. It can run against the
// connection or a transaction.
type Queries struct {
	db DBTX
}

// NewQueries creates a query layer over the given connection or transaction.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Now returns the current UTC time formatted for storage.
func Now() string {
	return time.Now().UTC().Format(TimeFormat)
}

// InTx runs fn inside a transaction on conn, committing on success.
func InTx(ctx context.Context, conn *sql.DB, fn func(q *Queries) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(NewQueries(tx)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
