package services

import (
	"context"
	"fmt"
	"time"

	"stock-scout/observability"
)

// RetryConfig controls retry attempts and backoff growth
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

var DefaultRetryConfig = RetryConfig{
	MaxRetries:     3,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
}

// nextBackoff doubles the wait up to the configured ceiling
func (c RetryConfig) nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > c.MaxBackoff {
		return c.MaxBackoff
	}
	return next
}

// WithRetry runs fn up to MaxRetries+1 times with exponential backoff
// between attempts. Cancellation of ctx aborts the wait, not a running fn.
func WithRetry(ctx context.Context, config RetryConfig, fn func() error) error {
	backoff := config.InitialBackoff

	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt == config.MaxRetries {
			break
		}

		observability.Warn("retry attempt failed",
			"attempt", attempt+1,
			"max_retries", config.MaxRetries,
			"backoff", backoff.String(),
			"error", lastErr)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = config.nextBackoff(backoff)
	}

	return fmt.Errorf("failed after %d retries: %w", config.MaxRetries, lastErr)
}
