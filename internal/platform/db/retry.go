package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	retryAttempts = 4
	retryBaseWait = 25 * time.Millisecond
)

// Retry runs fn until it succeeds, fails with a non-transient error, or the
// attempts run out. The last error is returned as-is.
func Retry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	wait := retryBaseWait
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		err = fn(ctx)
		if err == nil || !IsTransient(err) || attempt == retryAttempts {
			return err
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		wait *= 2
	}
	return err
}

// IsTransient reports errors worth retrying: serialization failures,
// deadlocks, and failures pgx marks safe to retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		}
		return false
	}
	return pgconn.SafeToRetry(err)
}
