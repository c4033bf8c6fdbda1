// Package cleaner strips fixture fields that change without affecting the
// state we persist (venue, weather, line-ups and so on), so that hashing a
// season only reacts to score, status, time and team changes.
package cleaner

import "github.com/albapepper/scoracle-crawl/internal/provider"

// CleanSeason returns a copy of s whose fixtures have been cleaned. The input
// is never modified. A season without fixtures is returned as is.
func CleanSeason(s provider.Season) provider.Season {
	if s.Fixtures == nil {
		return s
	}
	fixtures := make([]provider.Fixture, len(s.Fixtures.Data))
	for i, f := range s.Fixtures.Data {
		fixtures[i] = CleanFixture(f)
	}
	s.Fixtures = &provider.Include[[]provider.Fixture]{Data: fixtures}
	return s
}

// CleanFixture returns f without its volatile fields.
func CleanFixture(f provider.Fixture) provider.Fixture {
	f.Assistants = nil
	f.Attendance = nil
	f.Coaches = nil
	f.Colors = nil
	f.Commentaries = nil
	f.Details = nil
	f.Formations = nil
	f.NeutralVenue = nil
	f.Pitch = nil
	f.RefereeID = nil
	f.Standings = nil
	f.VenueID = nil
	f.WeatherReport = nil
	return f
}

// CleanFixtures cleans every fixture of a live poll.
func CleanFixtures(fixtures []provider.Fixture) []provider.Fixture {
	if fixtures == nil {
		return nil
	}
	out := make([]provider.Fixture, len(fixtures))
	for i, f := range fixtures {
		out[i] = CleanFixture(f)
	}
	return out
}
