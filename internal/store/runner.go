package store

import (
	"context"
	"errors"
)

// ErrRetriesExhausted is returned by RunTransaction when every attempt
// ended with a stale commit.
var ErrRetriesExhausted = errors.New("store: transaction retries exhausted")

// TxFunc is one read-validate-write cycle.  It may be called several
// times; each call must derive everything it writes from the reads it
// makes through tx.
type TxFunc func(ctx context.Context, tx Tx) error

// RunTransaction runs fn in a fresh transaction until a commit succeeds,
// fn returns an error, or maxAttempts stale commits have happened.  Only
// ErrStale is retried.  It returns the number of attempts made.
func RunTransaction(ctx context.Context, t Transactor, maxAttempts int, fn TxFunc) (int, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}
		tx, err := t.Begin(ctx)
		if err != nil {
			return attempt, err
		}
		if err := fn(ctx, tx); err != nil {
			_ = tx.Rollback()
			if errors.Is(err, ErrStale) {
				continue
			}
			return attempt, err
		}
		err = tx.Commit(ctx)
		if err == nil {
			return attempt, nil
		}
		_ = tx.Rollback()
		if !errors.Is(err, ErrStale) {
			return attempt, err
		}
	}
	return maxAttempts, ErrRetriesExhausted
}
