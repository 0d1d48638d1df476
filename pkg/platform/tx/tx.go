// Package tx carries a SQL transaction through context so the engine can
// commit a state write, its audit entry, and the notification enqueue as one
// unit while each store stays unaware of its siblings.
package tx

import (
	"context"
	"database/sql"
	"fmt"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Runner begins transactions. *sql.DB satisfies it; tests can stub it.
type Runner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Run executes fn inside a transaction placed in the context. A nil runner
// means no SQL backing (in-memory stores); fn runs with the plain context and
// atomicity falls to the caller's lock.
func Run(ctx context.Context, runner Runner, fn func(ctx context.Context) error) error {
	if runner == nil {
		return fn(ctx)
	}
	sqlTx, err := runner.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
