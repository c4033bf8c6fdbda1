// Package maintenance runs periodic background tasks as Go tickers.
// The crawler is a long-running process, so housekeeping of the scanner log
// is driven from here instead of a database scheduler.
package maintenance

import (
	"context"
	"log/slog"
	"time"
)

// Pruner removes superseded scanner log rows older than retentionDays.
type Pruner interface {
	Prune(ctx context.Context, retentionDays int) (int64, error)
}

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	PruneInterval time.Duration // Scanner log pruning
	RetentionDays int
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		PruneInterval: 6 * time.Hour,
		RetentionDays: 30,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, pruner Pruner, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"prune", cfg.PruneInterval,
		"retention_days", cfg.RetentionDays)

	if cfg.PruneInterval > 0 && cfg.RetentionDays > 0 {
		t := time.NewTicker(cfg.PruneInterval)
		defer t.Stop()
		go runLoop(ctx, t.C, func() { prune(ctx, pruner, cfg.RetentionDays, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// prune trims the scanner log. The newest row of every identifier survives,
// so the change-detection cache is unaffected.
func prune(ctx context.Context, pruner Pruner, retentionDays int, logger *slog.Logger) {
	start := time.Now()
	n, err := pruner.Prune(ctx, retentionDays)
	if err != nil {
		logger.Warn("Prune: failed to trim scanner log", "error", err)
		return
	}
	if n > 0 {
		logger.Info("Prune: trimmed scanner log", "count", n,
			"duration", time.Since(start).Round(time.Millisecond))
	}
}
