package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/travel-booking/internal/database"
)

// Transactor runs fn inside one database transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

// TxManager begins transactions on a database handle and injects the
// *sql.Tx into the context handed to fn.  Repositories called with that
// context run on the transaction; called with any other context they run
// on the pool.
type TxManager struct {
	db *database.DB
}

func NewTxManager(db *database.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTransaction commits when fn returns nil and rolls back otherwise,
// including on panic.  A context that already carries a transaction joins
// it instead of starting a nested one.
func (tm *TxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}

	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(withExecutor(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

// withExecutor pins every repository call made with ctx to ex.
func withExecutor(ctx context.Context, ex database.Executor) context.Context {
	return context.WithValue(ctx, txKey{}, ex)
}

func txFrom(ctx context.Context) (database.Executor, bool) {
	ex, ok := ctx.Value(txKey{}).(database.Executor)
	return ex, ok && ex != nil
}

// executor picks the transaction carried by ctx, or the pool.
func executor(ctx context.Context, db *database.DB) database.Executor {
	if ex, ok := txFrom(ctx); ok {
		return ex
	}
	return db.DB
}

// errNoRows maps sql.ErrNoRows onto ErrNotFound.
func errNoRows(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return classify(op, err)
}
