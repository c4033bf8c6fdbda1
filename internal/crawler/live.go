package crawler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/albapepper/scoracle-crawl/internal/cleaner"
	"github.com/albapepper/scoracle-crawl/internal/config"
	"github.com/albapepper/scoracle-crawl/internal/provider"
	"github.com/albapepper/scoracle-crawl/internal/schedule"
)

// LiveFetchAttempts caps the live fetch retries of one cycle.
const LiveFetchAttempts = 30

// Live polls in-play fixtures at a cadence chosen by the schedule classifier.
// The schedule is owned here and passed to the classifier on every cycle.
type Live struct {
	*Runner
	deps       Deps
	classifier *schedule.Classifier
	now        func() time.Time

	mu       sync.Mutex
	schedule *schedule.Schedule
	action   schedule.Action
}

func NewLive(deps Deps, classifier *schedule.Classifier) *Live {
	if classifier == nil {
		classifier = schedule.NewClassifier(schedule.DefaultTimeoutTable())
	}
	l := &Live{deps: deps, classifier: classifier, now: time.Now}
	l.Runner = NewRunner(config.CrawlerLive, deps.Config.RefreshInterval, l.cycle, deps.logger())
	return l
}

func (l *Live) Setup(ctx context.Context) error { return nil }

// SetClock replaces the clock used for classification.
func (l *Live) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

func (l *Live) clock() time.Time {
	l.mu.Lock()
	now := l.now
	l.mu.Unlock()
	return now()
}

func (l *Live) cycle(ctx context.Context, logger *slog.Logger) (time.Duration, error) {
	var fixtures []provider.Fixture
	attempts, err := l.deps.retryDriver(LiveFetchAttempts).Do(ctx, "fetch live fixtures", func(ctx context.Context) error {
		var err error
		fixtures, err = l.deps.Source.FetchLive(ctx)
		return err
	})

	l.mu.Lock()
	prev := l.schedule
	l.mu.Unlock()

	if err != nil {
		// Abandon the cycle and keep polling on the last known schedule.
		action := l.classify(prev)
		logger.Error("Live fetch abandoned", "attempts", attempts, "error", err, "next", action.Timeout)
		return action.Timeout, err
	}

	next := schedule.Extract(prev, fixtures)
	l.mu.Lock()
	l.schedule = next
	l.mu.Unlock()
	action := l.classify(next)

	if len(fixtures) > 0 {
		changed, outcome, err := l.deps.Gateway.UpdateLiveFixtures(ctx, cleaner.CleanFixtures(fixtures))
		if err != nil {
			logger.Warn("Failed to update live fixtures", "error", err)
		} else {
			logger.Info("Live fixtures crawled", "fixtures", len(fixtures), "changed", changed, "outcome", outcome)
		}
	}
	logger.Info("Next live poll", "mode", action.Mode, "timeout", action.Timeout)
	return action.Timeout, nil
}

func (l *Live) classify(s *schedule.Schedule) schedule.Action {
	action := l.classifier.Process(s, l.clock())
	l.mu.Lock()
	l.action = action
	l.mu.Unlock()
	return action
}

// Schedule returns the current schedule and the last action taken on it.
func (l *Live) Schedule() (*schedule.Schedule, schedule.Action) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.schedule, l.action
}

// SetTimeoutTable swaps the timeout table, re-evaluates the current schedule
// and rearms the pending wait with the new timeout.
func (l *Live) SetTimeoutTable(table schedule.TimeoutTable) schedule.Action {
	l.mu.Lock()
	current := l.schedule
	l.mu.Unlock()

	action := l.classifier.SetTimeoutTable(table, current, l.clock())
	l.mu.Lock()
	l.action = action
	l.mu.Unlock()
	l.Reschedule(action.Timeout)
	return action
}

// TimeoutTable returns the active timeout table.
func (l *Live) TimeoutTable() schedule.TimeoutTable {
	return l.classifier.Table()
}
