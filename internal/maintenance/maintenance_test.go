package maintenance

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPruner struct {
	calls atomic.Int32
	days  atomic.Int32
	err   error
}

func (p *countingPruner) Prune(ctx context.Context, retentionDays int) (int64, error) {
	p.calls.Add(1)
	p.days.Store(int32(retentionDays))
	return 3, p.err
}

func TestStartPrunesOnTicker(t *testing.T) {
	p := &countingPruner{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Start(ctx, p, Config{PruneInterval: 5 * time.Millisecond, RetentionDays: 14}, slog.Default())
		close(done)
	}()

	require.Eventually(t, func() bool { return p.calls.Load() >= 2 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(14), p.days.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestStartDisabledTask(t *testing.T) {
	p := &countingPruner{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	Start(ctx, p, Config{PruneInterval: time.Millisecond}, slog.Default())
	assert.Zero(t, p.calls.Load())
}

func TestAfterCrawl(t *testing.T) {
	p := &countingPruner{}
	require.NoError(t, AfterCrawl(context.Background(), p, 30, slog.Default()))
	assert.Equal(t, int32(1), p.calls.Load())

	require.NoError(t, AfterCrawl(context.Background(), p, 0, slog.Default()))
	assert.Equal(t, int32(1), p.calls.Load())

	p.err = errors.New("connection refused")
	err := AfterCrawl(context.Background(), p, 30, slog.Default())
	assert.ErrorContains(t, err, "trim scanner log: connection refused")
}
