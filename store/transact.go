// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"fmt"
	"log/slog"
)

// Transact runs fn inside a transaction and commits it when fn returns nil.
// Write conflicts restart fn in a fresh transaction, at most attempts times
// in total. The last error is returned.
func Transact(ctx context.Context, s Store, attempts int, fn func(tx Tx) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = runOnce(ctx, s, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		slog.Debug("transaction conflict, retrying", "attempt", attempt, "error", err)
	}
	return err
}

func runOnce(ctx context.Context, s Store, fn func(tx Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
