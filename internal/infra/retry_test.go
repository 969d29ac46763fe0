package infra

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryStopsOnNonRetryable(t *testing.T) {
	t.Parallel()

	permanent := errors.New("constraint failed")
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(err error) bool {
		return false
	}, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single attempt, got %d", calls)
	}
}

func TestRetryRecoversTransientError(t *testing.T) {
	t.Parallel()

	transient := errors.New("database is locked")
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(err error) bool {
		return errors.Is(err, transient)
	}, func() error {
		calls++
		if calls < 3 {
			return transient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected three attempts, got %d", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	t.Parallel()

	transient := errors.New("database is locked")
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(err error) bool {
		return true
	}, func() error {
		calls++
		return transient
	})
	if !errors.Is(err, transient) {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected three attempts, got %d", calls)
	}
}

func TestRetryHonorsContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 5, time.Minute, func(err error) bool {
		return true
	}, func() error {
		return errors.New("busy")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
