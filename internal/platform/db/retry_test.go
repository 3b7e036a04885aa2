package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("boom")
	err := Retry(context.Background(), func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("expected one call with permanent error, got %d calls, err %v", calls, err)
	}
}

func TestRetryRetriesSerializationFailure(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("update: %w", &pgconn.PgError{Code: "40001"})
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success on third call, got %d calls, err %v", calls, err)
	}
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func(context.Context) error {
		calls++
		return &pgconn.PgError{Code: "40P01"}
	})
	if err == nil || calls != retryAttempts {
		t.Fatalf("expected %d attempts, got %d (err %v)", retryAttempts, calls, err)
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(nil) {
		t.Fatal("nil is not transient")
	}
	if IsTransient(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("unique violation is not transient")
	}
	if !IsTransient(&pgconn.PgError{Code: "40001"}) {
		t.Fatal("serialization failure is transient")
	}
}
