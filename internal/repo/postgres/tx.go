package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrUnavailable marks transient persistence failures; the caller
	// may retry with backoff, no partial state was written.
	ErrUnavailable = errors.New("store unavailable")

	// ErrTxConflict is returned when the transaction kept losing to
	// concurrent writers and the retry budget ran out.
	ErrTxConflict = errors.New("transaction conflict retries exhausted")
)

const txConflictRetries = 3

// WithTx runs fn inside a transaction, committing on nil and rolling
// back otherwise. Serialization failures are retried a bounded number
// of times; connection-level failures surface as ErrUnavailable.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(context.Context, pgx.Tx) error) error {
	if pool == nil {
		return fmt.Errorf("%w: postgres pool is nil", ErrUnavailable)
	}

	var lastErr error
	for attempt := 0; attempt < txConflictRetries; attempt++ {
		err := runTxOnce(ctx, pool, fn)
		if err == nil {
			return nil
		}
		if !isSerializationFailure(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%w: %v", ErrTxConflict, lastErr)
}

func runTxOnce(ctx context.Context, pool *pgxpool.Pool, fn func(context.Context, pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrUnavailable, err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return err
		}
		return fmt.Errorf("%w: commit tx: %v", ErrUnavailable, err)
	}

	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// 40001 serialization_failure, 40P01 deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
