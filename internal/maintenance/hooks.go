package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// AfterCrawl trims the scanner log once. Call it when a single-pass crawl has
// finished, where no ticker is running.
func AfterCrawl(ctx context.Context, pruner Pruner, retentionDays int, logger *slog.Logger) error {
	if retentionDays <= 0 {
		return nil
	}
	start := time.Now()
	n, err := pruner.Prune(ctx, retentionDays)
	dur := time.Since(start).Round(time.Millisecond)
	if err != nil {
		logger.Warn("Failed to trim scanner log", "duration", dur, "error", err)
		return fmt.Errorf("trim scanner log: %w", err)
	}
	logger.Info("Trimmed scanner log", "count", n, "duration", dur)
	return nil
}
