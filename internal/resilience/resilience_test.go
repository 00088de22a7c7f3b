package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BogdanYatsenko/telegram-backup-bot/internal/resilience"
)

func fastRetryConfig(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
		RandomFactor:    0,
	}
}

func TestWithRetryEventualSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := resilience.WithRetry(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, fastRetryConfig(3))

	if err != nil {
		t.Fatalf("WithRetry() error = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("operation called %d times, want 3", calls)
	}
}

func TestWithRetryExhausted(t *testing.T) {
	t.Parallel()

	calls := 0
	err := resilience.WithRetry(context.Background(), func(context.Context) error {
		calls++
		return errors.New("transient")
	}, fastRetryConfig(3))

	if !errors.Is(err, resilience.ErrExhaustedRetries) {
		t.Fatalf("WithRetry() error = %v, want ErrExhaustedRetries", err)
	}
	if calls != 3 {
		t.Errorf("operation called %d times, want 3", calls)
	}
}

func TestWithRetryPermanentStopsImmediately(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("permission denied")
	calls := 0
	err := resilience.WithRetry(context.Background(), func(context.Context) error {
		calls++
		return resilience.Permanent(sentinel)
	}, fastRetryConfig(5))

	if !errors.Is(err, sentinel) {
		t.Fatalf("WithRetry() error = %v, want wrapped sentinel", err)
	}
	if calls != 1 {
		t.Errorf("operation called %d times, want 1", calls)
	}
}

func TestWithRetryContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := resilience.WithRetry(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	}, fastRetryConfig(5))

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("WithRetry() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("operation called %d times, want 1", calls)
	}
}
