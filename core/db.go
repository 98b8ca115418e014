package core

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
)

type (
	DBExecutor interface {
		Exec(query string, args ...interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		Query(query string, args ...interface{}) (*sql.Rows, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRow(query string, args ...interface{}) *sql.Row
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	DB interface {
		DBExecutor

		Begin() (*sql.Tx, error)
		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
	}

	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}
)

var (
	_ DB           = (*sql.DB)(nil)
	_ DBTransactor = (*sql.Tx)(nil)
)

// RunInTx runs fn inside a single transaction.
// The transaction is committed when fn returns nil and rolled back otherwise, including when fn panics.
// Errors returned by fn are returned as is so callers can still match them.
func RunInTx(ctx context.Context, db DB, fn func(tx DBTransactor) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				err = errors.WithMessage(err, fmt.Sprintf("rolling back: %v", rbErr))
			}
			return
		}
		if err = tx.Commit(); err != nil {
			err = errors.Wrap(err, "committing transaction")
		}
	}()

	return fn(tx)
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
