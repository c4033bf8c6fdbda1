package sportmonks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/albapepper/scoracle-crawl/internal/provider"
)

const seasonIncludes = "league,stages,rounds,groups,fixtures,fixtures.odds"

// --------------------------------------------------------------------------
// Areas
// --------------------------------------------------------------------------

func (c *Client) FetchAvailableContinents(ctx context.Context) ([]provider.Continent, error) {
	continents, err := getAll[provider.Continent](ctx, c, "/continents", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch continents: %w", err)
	}
	return continents, nil
}

// FetchAvailableCountries returns every country with a non-blank name.
func (c *Client) FetchAvailableCountries(ctx context.Context) ([]provider.Country, error) {
	countries, err := getAll[provider.Country](ctx, c, "/countries", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch countries: %w", err)
	}
	out := countries[:0]
	for _, ct := range countries {
		if strings.TrimSpace(ct.Name) != "" {
			out = append(out, ct)
		}
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Leagues and seasons
// --------------------------------------------------------------------------

func (c *Client) FetchAvailableLeagues(ctx context.Context) ([]provider.League, error) {
	leagues, err := getAll[provider.League](ctx, c, "/leagues", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch leagues: %w", err)
	}
	return leagues, nil
}

// FetchAvailableLeaguesWithCurrentSeasons includes the current season of
// every league the subscription unlocks.
func (c *Client) FetchAvailableLeaguesWithCurrentSeasons(ctx context.Context) ([]provider.League, error) {
	leagues, err := getAll[provider.League](ctx, c, "/leagues", url.Values{"include": {"season"}})
	if err != nil {
		return nil, fmt.Errorf("fetch leagues with current seasons: %w", err)
	}
	return leagues, nil
}

// FetchFullSeason returns a season with league, stages, rounds, groups and
// fixtures (with 3-way odds) included.
func (c *Client) FetchFullSeason(ctx context.Context, seasonID int) (*provider.Season, error) {
	var season provider.Season
	path := fmt.Sprintf("/seasons/%d", seasonID)
	if err := c.getInto(ctx, path, c.oddsParams(seasonIncludes), &season); err != nil {
		return nil, fmt.Errorf("fetch season %d: %w", seasonID, err)
	}
	return &season, nil
}

func (c *Client) FetchSeasonStandings(ctx context.Context, seasonID int) ([]provider.Standing, error) {
	var tables []provider.Standing
	if err := c.getInto(ctx, fmt.Sprintf("/standings/season/%d", seasonID), nil, &tables); err != nil {
		return nil, fmt.Errorf("fetch standings of season %d: %w", seasonID, err)
	}
	return tables, nil
}

// --------------------------------------------------------------------------
// Teams
// --------------------------------------------------------------------------

func (c *Client) FetchTeamsOfSeason(ctx context.Context, seasonID int) ([]provider.Team, error) {
	var teams []provider.Team
	if err := c.getInto(ctx, fmt.Sprintf("/teams/season/%d", seasonID), nil, &teams); err != nil {
		return nil, fmt.Errorf("fetch teams of season %d: %w", seasonID, err)
	}
	return teams, nil
}

// FetchTeams fetches teams one by one. Unknown ids and teams with a blank
// name are skipped.
func (c *Client) FetchTeams(ctx context.Context, teamIDs []int) ([]provider.Team, error) {
	teams := make([]provider.Team, 0, len(teamIDs))
	for _, id := range teamIDs {
		var t provider.Team
		err := c.getInto(ctx, fmt.Sprintf("/teams/%d", id), nil, &t)
		if errors.Is(err, provider.ErrNotFound) {
			c.logger.Warn("Team not found", "team_id", id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetch team %d: %w", id, err)
		}
		if strings.TrimSpace(t.Name) == "" {
			continue
		}
		teams = append(teams, t)
	}
	return teams, nil
}

// --------------------------------------------------------------------------
// Live
// --------------------------------------------------------------------------

// FetchLive returns today's fixtures of the configured leagues that are about
// to start, in play or recently finished.
func (c *Client) FetchLive(ctx context.Context) ([]provider.Fixture, error) {
	params := c.oddsParams("odds")
	if len(c.liveLeagues) > 0 {
		params.Set("leagues", joinIDs(c.liveLeagues))
	}
	var fixtures []provider.Fixture
	if err := c.getInto(ctx, "/livescores/now", params, &fixtures); err != nil {
		return nil, fmt.Errorf("fetch live fixtures: %w", err)
	}
	return fixtures, nil
}
