// Package retry provides the capped exponential backoff shared by the
// persistence gateway and the live crawler, and a small driver that re-runs a
// failing operation until it succeeds or its attempt budget is spent.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// MaxDelay caps every backoff delay.
const MaxDelay = 60 * time.Second

// ErrExhausted is returned once an operation failed on every allowed attempt.
var ErrExhausted = errors.New("retry budget exhausted")

// Backoff returns min(100ms * attempt², 60s).
func Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	// 25 is the first attempt that reaches the cap; avoids overflow on large counts.
	if attempt >= 25 {
		return MaxDelay
	}
	d := time.Duration(attempt*attempt) * 100 * time.Millisecond
	return min(d, MaxDelay)
}

// Driver re-invokes an operation with a backoff delay between attempts.
type Driver struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	// Sleep waits for d or until ctx is done. Defaults to a timer select.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *slog.Logger
}

// New returns a Driver using Backoff and a real timer.
func New(maxAttempts int, logger *slog.Logger) Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return Driver{MaxAttempts: maxAttempts, Backoff: Backoff, Sleep: Sleep, Logger: logger}
}

// Do runs op until it returns nil, the attempt budget is used up or ctx is
// cancelled. It returns the number of attempts made. On exhaustion the error
// wraps both ErrExhausted and the last failure.
func (d Driver) Do(ctx context.Context, label string, op func(ctx context.Context) error) (int, error) {
	backoff := d.Backoff
	if backoff == nil {
		backoff = Backoff
	}
	sleep := d.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxAttempts := max(d.MaxAttempts, 1)

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return attempt, nil
		}
		if attempt >= maxAttempts {
			return attempt, fmt.Errorf("%s: %w after %d attempts: %w", label, ErrExhausted, attempt, err)
		}
		delay := backoff(attempt)
		logger.Warn("Retrying after failure",
			"operation", label, "attempt", attempt, "max_attempts", maxAttempts,
			"delay", delay, "error", err)
		if err := sleep(ctx, delay); err != nil {
			return attempt, fmt.Errorf("%s: %w", label, err)
		}
	}
}

// Sleep blocks for d or until ctx is done, whichever happens first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
