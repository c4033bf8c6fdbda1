package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 900 * time.Millisecond},
		{10, 10 * time.Second},
		{24, 57600 * time.Millisecond},
		{25, 60 * time.Second},
		{30, 60 * time.Second},
		{1 << 40, 60 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func noSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	var delays []time.Duration
	d := Driver{MaxAttempts: 5, Backoff: Backoff, Sleep: noSleep(&delays)}

	calls := 0
	attempts, err := d.Do(context.Background(), "fetch", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 400 * time.Millisecond}, delays)
}

func TestDoExhaustsBudget(t *testing.T) {
	var delays []time.Duration
	d := Driver{MaxAttempts: 10, Sleep: noSleep(&delays)}
	failure := errors.New("connection refused")

	calls := 0
	attempts, err := d.Do(context.Background(), "save", func(context.Context) error {
		calls++
		return failure
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 10, attempts)
	assert.Equal(t, 10, calls)
	assert.Len(t, delays, 9)
}

func TestDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := Driver{MaxAttempts: 30, Sleep: func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}}

	calls := 0
	attempts, err := d.Do(ctx, "fetch", func(context.Context) error {
		calls++
		return errors.New("timeout")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}
