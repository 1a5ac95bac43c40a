package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		BackoffFactor: 2,
	}
}

func TestProbe_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	var retried []int

	err := Probe(context.Background(), fastConfig(5), "db", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not ready")
		}
		return nil
	}, func(attempt int, err error, next time.Duration) {
		retried = append(retried, attempt)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestProbe_ExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("down")
	calls := 0

	err := Probe(context.Background(), fastConfig(3), "cache", func(context.Context) error {
		calls++
		return sentinel
	}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "cache: max retry attempts (3) exceeded")
}

func TestProbe_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Probe(ctx, fastConfig(3), "db", func(context.Context) error {
		t.Fatal("probe must not run on a cancelled context")
		return nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
}
