package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Execer is satisfied by *sqlx.DB and *sqlx.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Querier is satisfied by *sqlx.DB and *sqlx.Tx.
type Querier interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// WithTx runs fn inside a transaction on db.
//
// The transaction commits only if fn returns nil. On error or panic every
// statement issued through tx is rolled back before the error is returned
// (or the panic re-raised).
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return Storage("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, Storage("rollback", rbErr))
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return Storage("commit", err)
	}
	return nil
}

// LastInsertID returns the id generated by an INSERT.
// Fails if the driver did not report one.
func LastInsertID(res sql.Result, entity string) (int64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, Storage("last insert id", err)
	}
	if id <= 0 {
		return 0, &Error{Code: CodeStorage, Message: "failed to retrieve " + entity + " id after insertion"}
	}
	return id, nil
}
