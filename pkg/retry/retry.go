// Package retry backs off between startup connectivity probes for the
// database and cache. Calls toward upstream data APIs are never retried.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config holds retry configuration
type Config struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	MaxTotalTimeout time.Duration
}

// DefaultConfig returns a default retry configuration with 30 second max timeout
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     8,
		InitialDelay:    200 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffFactor:   2.0,
		MaxTotalTimeout: 30 * time.Second,
	}
}

// OnRetry is invoked after a failed attempt, before sleeping.
type OnRetry func(attempt int, err error, nextDelay time.Duration)

// Probe runs fn until it succeeds, attempts run out or the context ends.
func Probe(ctx context.Context, cfg Config, name string, fn func(context.Context) error, onRetry OnRetry) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxTotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxTotalTimeout)
		defer cancel()
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%s: retry aborted after %d attempts: %w (last error: %v)", name, attempt-1, err, lastErr)
			}
			return fmt.Errorf("%s: retry aborted: %w", name, err)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		if onRetry != nil {
			onRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: retry aborted after %d attempts: %w (last error: %v)", name, attempt, ctx.Err(), lastErr)
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("%s: max retry attempts (%d) exceeded: %w", name, cfg.MaxAttempts, lastErr)
}
