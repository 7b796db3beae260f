// Package dbx holds the database plumbing shared by the repositories: DBTX,
// the query surface common to a pool and a transaction, a transaction runner,
// and Postgres error classification.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is satisfied by *sql.DB, *sql.Conn and *sql.Tx. Repositories take it
// so one implementation serves both single statements and multi-step flows.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Beginner starts transactions. *sql.DB and *sql.Conn satisfy it.
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// WithTx runs fn inside a transaction. fn's error is returned unchanged after
// a rollback, so sentinel errors survive; a failed commit is wrapped. A panic
// in fn rolls the transaction back and keeps unwinding.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    token, err := repos.RefreshTokens(tx).Consume(ctx, presented)
//	    ...
//	    return repos.RefreshTokens(tx).Create(ctx, token.UserID, next, expiresAt)
//	})
func WithTx(ctx context.Context, db Beginner, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	// after a successful commit this is a no-op returning sql.ErrTxDone
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
