package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries:     maxRetries,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
	}
}

func TestWithRetryFirstAttemptSucceeds(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetryConfig(3), func() error {
		calls++
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestWithRetryRecoversAfterTransientErrors(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetryConfig(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("quote endpoint timed out")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected eventual success, got: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryExhaustionWrapsLastError(t *testing.T) {
	sentinel := errors.New("persistent upstream failure")

	calls := 0
	err := WithRetry(context.Background(), fastRetryConfig(2), func() error {
		calls++
		return sentinel
	})

	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("exhaustion error should wrap the last attempt error, got: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected initial call plus 2 retries, got %d calls", calls)
	}
}

func TestWithRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := WithRetry(ctx, fastRetryConfig(5), func() error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errors.New("still failing")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context cancellation error, got: %v", err)
	}
	if calls > 3 {
		t.Errorf("expected retries to stop after cancellation, got %d calls", calls)
	}
}

func TestNextBackoffDoublesUpToCeiling(t *testing.T) {
	config := RetryConfig{
		MaxRetries:     5,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     35 * time.Millisecond,
	}

	steps := []time.Duration{}
	backoff := config.InitialBackoff
	for i := 0; i < 4; i++ {
		backoff = config.nextBackoff(backoff)
		steps = append(steps, backoff)
	}

	want := []time.Duration{
		20 * time.Millisecond,
		35 * time.Millisecond,
		35 * time.Millisecond,
		35 * time.Millisecond,
	}
	for i, got := range steps {
		if got != want[i] {
			t.Errorf("step %d: expected backoff %v, got %v", i, want[i], got)
		}
	}
}
