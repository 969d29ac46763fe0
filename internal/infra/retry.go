package infra

import (
	"context"
	"time"
)

// Retry runs op up to attempts times, sleeping backoff between tries.
// It retries only while isRetryable reports the error as transient;
// logical errors propagate immediately.
func Retry(ctx context.Context, attempts int, backoff time.Duration, isRetryable func(error) bool, op func() error) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if isRetryable == nil || !isRetryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}
