package repositories

import "context"

// TxFn runs with a context that carries the open transaction. Repository
// calls made with that context join it, so a lineage mutation (demote the
// active version, then promote another) commits or rolls back as a unit.
type TxFn func(ctx context.Context) error

// TransactionManager opens transactions for the document and household stores
type TransactionManager interface {
	// ExecTx runs fn in a transaction, or in the caller's when ctx already
	// carries one. An error from fn rolls everything back.
	ExecTx(ctx context.Context, fn TxFn) error
}

// InTx runs fn in a transaction and returns its result. The zero value is
// returned whenever the transaction does not commit.
func InTx[T any](ctx context.Context, tm TransactionManager, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := tm.ExecTx(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
