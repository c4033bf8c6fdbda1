package cleaner

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-crawl/internal/provider"
)

const rawSeason = `{
  "id": 17361, "name": "2020/2021", "league_id": 82, "is_current_season": true,
  "league": {"data": {"id": 82, "name": "Bundesliga", "country_id": 11}},
  "fixtures": {"data": [{
    "id": 16475287, "league_id": 82, "season_id": 17361, "stage_id": 77447501,
    "localteam_id": 503, "visitorteam_id": 683, "winner_team_id": 503,
    "venue_id": 338, "referee_id": 14, "attendance": 0, "neutral_venue": false,
    "weather_report": {"code": "clouds", "temperature": {"temp": 63.5}},
    "pitch": "good", "commentaries": true, "details": null,
    "formations": {"localteam_formation": "4-2-3-1"},
    "coaches": {"localteam_coach_id": 455361}, "colors": {"localteam": {"color": "#C40136"}},
    "assistants": {"first_assistant_id": 12}, "standings": {"localteam_position": 1},
    "scores": {"localteam_score": 8, "visitorteam_score": 0, "ht_score": "3-0", "ft_score": "8-0"},
    "time": {"status": "FT", "starting_at": {"date_time": "2020-09-18 18:30:00", "date": "2020-09-18",
      "time": "18:30:00", "timestamp": 1600453800, "timezone": "UTC"}, "minute": 90}
  }]}
}`

func decodeSeason(t *testing.T) provider.Season {
	t.Helper()
	var s provider.Season
	require.NoError(t, json.Unmarshal([]byte(rawSeason), &s))
	return s
}

func TestCleanSeasonStripsVolatileFields(t *testing.T) {
	season := decodeSeason(t)
	cleaned := CleanSeason(season)

	out, err := json.Marshal(cleaned.Fixtures.Data[0])
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(out, &fields))

	for _, name := range []string{
		"assistants", "attendance", "coaches", "colors", "commentaries", "details",
		"formations", "neutral_venue", "pitch", "referee_id", "standings", "venue_id",
		"weather_report",
	} {
		assert.NotContains(t, fields, name)
	}
	for _, name := range []string{"id", "scores", "time", "localteam_id", "visitorteam_id", "winner_team_id"} {
		assert.Contains(t, fields, name)
	}
}

func TestCleanSeasonDoesNotMutateInput(t *testing.T) {
	season := decodeSeason(t)
	before, err := json.Marshal(season)
	require.NoError(t, err)

	_ = CleanSeason(season)

	after, err := json.Marshal(season)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	require.NotNil(t, season.Fixtures.Data[0].VenueID)
}

func TestCleanSeasonIsIdempotent(t *testing.T) {
	once := CleanSeason(decodeSeason(t))
	twice := CleanSeason(once)
	assert.Equal(t, once, twice)
}

func TestCleanSeasonKeepsBusinessState(t *testing.T) {
	season := decodeSeason(t)
	cleaned := CleanSeason(season)

	orig := season.Fixtures.Data[0]
	got := cleaned.Fixtures.Data[0]
	assert.Equal(t, orig.Scores, got.Scores)
	assert.Equal(t, orig.Time, got.Time)
	assert.Equal(t, orig.LocalTeamID, got.LocalTeamID)
	assert.Equal(t, orig.VisitorTeamID, got.VisitorTeamID)
	assert.Equal(t, orig.WinnerTeamID, got.WinnerTeamID)
	assert.Equal(t, season.League, cleaned.League)
	assert.Equal(t, season.Name, cleaned.Name)
}

func TestCleanSeasonWithoutFixtures(t *testing.T) {
	season := provider.Season{ID: 1, Name: "2021/2022"}
	assert.Equal(t, season, CleanSeason(season))
}

func TestCleanFixtures(t *testing.T) {
	assert.Nil(t, CleanFixtures(nil))

	venue := 4
	got := CleanFixtures([]provider.Fixture{{ID: 1, VenueID: &venue}})
	require.Len(t, got, 1)
	assert.Nil(t, got[0].VenueID)
	assert.Equal(t, 1, got[0].ID)
}
