// Package schedule derives, from the fixtures of a live poll, the time window
// the crawler cares about and how urgently it has to poll next.
package schedule

import (
	"slices"
	"time"

	"github.com/albapepper/scoracle-crawl/internal/provider"
)

// MatchDuration is added to the last kickoff to close the window. Stoppage and
// extra time are not accounted for.
const MatchDuration = 90 * time.Minute

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Schedule is the set of fixtures that still matter, ordered by kickoff.
type Schedule struct {
	Fixtures      []provider.Fixture `json:"fixtures"`
	First         provider.Fixture   `json:"first"`
	Last          provider.Fixture   `json:"last"`
	IsSame        bool               `json:"is_same"`
	IsSingleSlot  bool               `json:"is_single_slot"`
	Window        Window             `json:"window"`
	SomeAreInPlay bool               `json:"some_are_in_play"`
}

// Extract builds the schedule of fixtures that are not finished or in play.
// When none qualify, prev is returned unchanged so the caller keeps its last
// known schedule.
func Extract(prev *Schedule, fixtures []provider.Fixture) *Schedule {
	relevant := make([]provider.Fixture, 0, len(fixtures))
	inPlay := false
	for _, f := range fixtures {
		switch f.Phase() {
		case provider.PhaseInPlay:
			inPlay = true
			relevant = append(relevant, f)
		case provider.PhaseNotFinished:
			relevant = append(relevant, f)
		}
	}
	if len(relevant) == 0 {
		return prev
	}

	slices.SortStableFunc(relevant, func(a, b provider.Fixture) int {
		return a.StartingAt().Compare(b.StartingAt())
	})

	first, last := relevant[0], relevant[len(relevant)-1]
	start, lastStart := first.StartingAt(), last.StartingAt()
	return &Schedule{
		Fixtures:      relevant,
		First:         first,
		Last:          last,
		IsSame:        first.ID == last.ID,
		IsSingleSlot:  start.Equal(lastStart),
		Window:        Window{Start: start, End: lastStart.Add(MatchDuration)},
		SomeAreInPlay: inPlay,
	}
}
