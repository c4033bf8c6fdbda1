package schedule

import (
	"sync"
	"time"
)

// tier is an inclusive upper bound on the time left before kickoff.
type tier struct {
	within time.Duration
	mode   Mode
}

var beforeTiers = []tier{
	{5 * time.Minute, Before5Min},
	{15 * time.Minute, Before15Min},
	{30 * time.Minute, Before30Min},
	{time.Hour, Before1Hour},
	{4 * time.Hour, Before4Hour},
	{8 * time.Hour, Before8Hour},
	{12 * time.Hour, Before12Hour},
}

const afterWindow = 30 * time.Minute

// Classifier turns a schedule into an action using a swappable timeout table.
// It holds no schedule of its own; callers own and pass it in.
type Classifier struct {
	mu    sync.RWMutex
	table TimeoutTable
}

// NewClassifier creates a classifier with the given table.
func NewClassifier(table TimeoutTable) *Classifier {
	return &Classifier{table: table}
}

// Classify returns the mode of s at now. A nil schedule is LongAfter.
func Classify(s *Schedule, now time.Time) Mode {
	if s == nil {
		return LongAfter
	}
	if s.SomeAreInPlay {
		return Live
	}
	start, end := s.Window.Start, s.Window.End
	switch {
	case now.Before(start):
		left := start.Sub(now)
		for _, t := range beforeTiers {
			if left <= t.within {
				return t.mode
			}
		}
		return LongBefore
	case now.Before(end):
		// Inside the window with nothing in play: the provider is late.
		return Live
	default:
		if now.Sub(end) <= afterWindow {
			return After30Min
		}
		return LongAfter
	}
}

// Process classifies s and attaches the timeout from the current table.
func (c *Classifier) Process(s *Schedule, now time.Time) Action {
	mode := Classify(s, now)
	return Action{Mode: mode, Timeout: c.Timeout(mode)}
}

// Timeout returns the wait configured for m.
func (c *Classifier) Timeout(m Mode) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table.Lookup(m)
}

// Table returns the active timeout table.
func (c *Classifier) Table() TimeoutTable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table
}

// SetTimeoutTable swaps the table and re-evaluates current at now, so the
// caller can rearm its wait with the new timeout right away.
func (c *Classifier) SetTimeoutTable(table TimeoutTable, current *Schedule, now time.Time) Action {
	c.mu.Lock()
	c.table = table
	c.mu.Unlock()
	return c.Process(current, now)
}
