package pureapi

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryConfig controls the retry loop around marketplace calls. The rate
// limit delay is applied before every attempt, including the first, because
// the marketplace throttles aggressively.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	RateLimitDelay time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 2 * time.Second,
		RateLimitDelay: 500 * time.Millisecond,
	}
}

// withRetry runs fn until it succeeds or attempts run out. Backoff doubles
// after each failure.
func withRetry[T any](ctx context.Context, cfg RetryConfig, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	backoff := cfg.InitialBackoff

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := sleepCtx(ctx, cfg.RateLimitDelay); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		if attempt == cfg.MaxRetries {
			return zero, fmt.Errorf("%s: %w (after %d attempts)", op, err, attempt+1)
		}

		slog.WarnContext(ctx, "Marketplace call failed, retrying",
			"operation", op,
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err)

		if err := sleepCtx(ctx, backoff); err != nil {
			return zero, err
		}
		backoff *= 2
	}
	return zero, fmt.Errorf("%s: retries exhausted", op)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
