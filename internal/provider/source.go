package provider

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the requested season or team does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotSupported is returned by sources that cannot serve an operation.
	ErrNotSupported = errors.New("not supported by this source")
)

// Source is the data provider the crawl orchestrators read from. The live
// SportMonks client and the file-backed mock both implement it.
type Source interface {
	FetchAvailableContinents(ctx context.Context) ([]Continent, error)
	FetchAvailableCountries(ctx context.Context) ([]Country, error)
	FetchAvailableLeagues(ctx context.Context) ([]League, error)
	// FetchAvailableLeaguesWithCurrentSeasons returns leagues whose Season
	// include carries the full payload of their current season.
	FetchAvailableLeaguesWithCurrentSeasons(ctx context.Context) ([]League, error)
	FetchFullSeason(ctx context.Context, seasonID int) (*Season, error)
	FetchTeamsOfSeason(ctx context.Context, seasonID int) ([]Team, error)
	FetchTeams(ctx context.Context, teamIDs []int) ([]Team, error)
	FetchLive(ctx context.Context) ([]Fixture, error)
	FetchSeasonStandings(ctx context.Context, seasonID int) ([]Standing, error)
}

// SetBacker is implemented by development sources that can rewind a season.
type SetBacker interface {
	// SetBackSeasonToDate resets every fixture of the season starting after at
	// to not started. includeGame also resets a fixture starting exactly at at.
	SetBackSeasonToDate(seasonID int, at time.Time, includeGame bool) (string, error)
}

// SeasonIDs extracts the current season id of every league that carries one.
func SeasonIDs(leagues []League) []int {
	ids := make([]int, 0, len(leagues))
	for _, l := range leagues {
		switch {
		case l.Season != nil && l.Season.Data.ID != 0:
			ids = append(ids, l.Season.Data.ID)
		case l.CurrentSeasonID != nil:
			ids = append(ids, *l.CurrentSeasonID)
		}
	}
	return ids
}
