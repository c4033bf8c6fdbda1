package mockdb

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-crawl/internal/provider"
)

var kickoff = time.Date(2021, 5, 22, 13, 30, 0, 0, time.UTC)

func fixtureAt(id int, start time.Time, status string, home, away int) provider.Fixture {
	f := provider.Fixture{ID: id, LeagueID: 82, SeasonID: 17361, LocalTeamID: 503, VisitorTeamID: 683}
	f.SetStartingAt(start)
	f.Time.Status = status
	f.Scores.LocalTeamScore = home
	f.Scores.VisitorTeamScore = away
	winner := 503
	f.WinnerTeamID = &winner
	ht := "1-0"
	f.Scores.HTScore = &ht
	return f
}

func seedSeason(t *testing.T, fs afero.Fs) provider.Season {
	t.Helper()
	season := provider.Season{
		ID: 17361, Name: "2020/2021", LeagueID: 82,
		League: &provider.Include[provider.League]{Data: provider.League{ID: 82, Name: "Bundesliga", CountryID: 11}},
		Fixtures: &provider.Include[[]provider.Fixture]{Data: []provider.Fixture{
			fixtureAt(1, kickoff.Add(-7*24*time.Hour), "FT", 2, 1),
			fixtureAt(2, kickoff, "FT", 3, 0),
			fixtureAt(3, kickoff.Add(2*time.Hour), "FT", 1, 1),
		}},
	}
	teams := []provider.Team{{ID: 503, Name: "Bayern München"}, {ID: 683, Name: "Schalke 04"}}
	w := NewWriter(fs, "/mock", nil)
	_, err := w.WriteSeason(season, teams)
	require.NoError(t, err)
	return season
}

func TestWriterAndSourceRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedSeason(t, fs)
	require.NoError(t, NewWriter(fs, "/mock", nil).WriteStandings(17361, []provider.Standing{{ID: 1, SeasonID: 17361}}))

	b, err := afero.ReadFile(fs, "/mock/17361/17361.json")
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n  \"id\": 17361,")

	src := New(fs, "/mock", nil)
	ctx := context.Background()

	season, err := src.FetchFullSeason(ctx, 17361)
	require.NoError(t, err)
	assert.Len(t, season.FixtureList(), 3)

	teams, err := src.FetchTeamsOfSeason(ctx, 17361)
	require.NoError(t, err)
	assert.Len(t, teams, 2)

	tables, err := src.FetchSeasonStandings(ctx, 17361)
	require.NoError(t, err)
	assert.Len(t, tables, 1)

	_, err = src.FetchFullSeason(ctx, 1)
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

func TestAutoDiscoveryScansNumericDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedSeason(t, fs)
	require.NoError(t, fs.MkdirAll("/mock/_all", 0o755))
	require.NoError(t, fs.MkdirAll("/mock/999", 0o755))

	leagues, err := New(fs, "/mock", nil).FetchAvailableLeaguesWithCurrentSeasons(context.Background())
	require.NoError(t, err)
	require.Len(t, leagues, 1)
	assert.Equal(t, "Bundesliga", leagues[0].Name)
	assert.Equal(t, []int{17361}, provider.SeasonIDs(leagues))
}

func TestSetBackRewindsLaterFixtures(t *testing.T) {
	tests := []struct {
		name        string
		includeGame bool
		rewound     []int
	}{
		{"after boundary only", false, []int{3}},
		{"including the game at the boundary", true, []int{2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			seedSeason(t, fs)
			src := New(fs, "/mock", nil)

			msg, err := src.SetBackSeasonToDate(17361, kickoff, tt.includeGame)
			require.NoError(t, err)
			assert.Contains(t, msg, "17361")

			season, err := src.FetchFullSeason(context.Background(), 17361)
			require.NoError(t, err)

			var rewound []int
			for _, f := range season.FixtureList() {
				if f.Time.Status != "NS" {
					assert.NotNil(t, f.WinnerTeamID)
					continue
				}
				rewound = append(rewound, f.ID)
				assert.Nil(t, f.WinnerTeamID)
				assert.False(t, f.WinningOddsCalculated)
				assert.Zero(t, f.Scores.LocalTeamScore)
				assert.Nil(t, f.Scores.HTScore)
				assert.Nil(t, f.Time.Minute)
			}
			assert.Equal(t, tt.rewound, rewound)
		})
	}
}

func TestSetBackUnknownSeason(t *testing.T) {
	_, err := New(afero.NewMemMapFs(), "/mock", nil).SetBackSeasonToDate(42, kickoff, false)
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

func TestFetchLiveAfterSetBack(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedSeason(t, fs)
	src := New(fs, "/mock", nil)
	src.SetClock(func() time.Time { return kickoff.Add(-30 * time.Minute) })

	live, err := src.FetchLive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, live)

	_, err = src.SetBackSeasonToDate(17361, kickoff, true)
	require.NoError(t, err)
	live, err = src.FetchLive(context.Background())
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Equal(t, 2, live[0].ID)
	assert.Equal(t, 3, live[1].ID)
}

func TestAggregateListsMissingFilesAreEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := New(fs, "/mock", nil)
	ctx := context.Background()

	countries, err := src.FetchAvailableCountries(ctx)
	require.NoError(t, err)
	assert.Empty(t, countries)

	w := NewWriter(fs, "/mock", nil)
	require.NoError(t, w.WriteAll("placeholders", []provider.Team{{ID: 260165, Name: "Winner A"}, {ID: 260166, Name: "Winner B"}}))
	teams, err := src.FetchTeams(ctx, []int{260166})
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "Winner B", teams[0].Name)
}

func TestSummarizeFixtures(t *testing.T) {
	fixtures := []provider.Fixture{
		fixtureAt(2, kickoff, "FT", 3, 0),
		fixtureAt(1, kickoff.Add(-time.Hour), "FT", 2, 1),
	}
	out := SummarizeFixtures(fixtures, []provider.Team{{ID: 503, Name: "Bayern München"}})
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].ID)
	assert.Equal(t, "Bayern München", out[0].LocalTeam)
	assert.Empty(t, out[0].VisitingTeam)
}
