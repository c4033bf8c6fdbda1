// Package provider defines the canonical football data types every data source
// decodes into, and the Source interface the crawl orchestrators consume.
//
// Field names and JSON tags follow the SportMonks v2 payloads so the live client
// and the file-backed mock share one decoding path. Includes arrive wrapped as
// {"data": ...} and are modelled with Include.
package provider

import (
	"encoding/json"
	"sync"
	"time"
)

// Include is the SportMonks wrapper around nested relationships.
type Include[T any] struct {
	Data T `json:"data"`
}

// --------------------------------------------------------------------------
// Areas
// --------------------------------------------------------------------------

type Continent struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type CountryExtra struct {
	Continent   string   `json:"continent,omitempty"`
	SubRegion   string   `json:"sub_region,omitempty"`
	WorldRegion string   `json:"world_region,omitempty"`
	FIFA        string   `json:"fifa,omitempty"`
	ISO         string   `json:"iso,omitempty"`
	ISO2        string   `json:"iso2,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Flag        string   `json:"flag,omitempty"`
}

type Country struct {
	ID    int           `json:"id"`
	Name  string        `json:"name"`
	Extra *CountryExtra `json:"extra,omitempty"`
}

// --------------------------------------------------------------------------
// Competitions
// --------------------------------------------------------------------------

type Coverage struct {
	Predictions      bool `json:"predictions"`
	TopscorerGoals   bool `json:"topscorer_goals"`
	TopscorerAssists bool `json:"topscorer_assists"`
	TopscorerCards   bool `json:"topscorer_cards"`
}

// League is a competition. Season is only present when requested with
// include=season (currently active season of the league).
type League struct {
	ID              int              `json:"id"`
	Active          bool             `json:"active"`
	Type            string           `json:"type,omitempty"`
	LegacyID        *int             `json:"legacy_id,omitempty"`
	CountryID       int              `json:"country_id"`
	LogoPath        string           `json:"logo_path,omitempty"`
	Name            string           `json:"name"`
	IsCup           bool             `json:"is_cup"`
	CurrentSeasonID *int             `json:"current_season_id,omitempty"`
	CurrentRoundID  *int             `json:"current_round_id,omitempty"`
	CurrentStageID  *int             `json:"current_stage_id,omitempty"`
	LiveStandings   bool             `json:"live_standings"`
	Coverage        *Coverage        `json:"coverage,omitempty"`
	Season          *Include[Season] `json:"season,omitempty"`
}

type Team struct {
	ID           int    `json:"id"`
	LegacyID     *int   `json:"legacy_id,omitempty"`
	Name         string `json:"name"`
	ShortCode    string `json:"short_code,omitempty"`
	Twitter      string `json:"twitter,omitempty"`
	CountryID    *int   `json:"country_id,omitempty"`
	NationalTeam bool   `json:"national_team"`
	Founded      *int   `json:"founded,omitempty"`
	LogoPath     string `json:"logo_path,omitempty"`
	VenueID      *int   `json:"venue_id,omitempty"`
}

type Stage struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	LeagueID     int    `json:"league_id"`
	SeasonID     int    `json:"season_id"`
	SortOrder    *int   `json:"sort_order,omitempty"`
	HasStandings bool   `json:"has_standings"`
}

// Round names are numeric for league rounds and free text for some cups.
type Round struct {
	ID       int    `json:"id"`
	Name     any    `json:"name"`
	LeagueID int    `json:"league_id"`
	SeasonID int    `json:"season_id"`
	StageID  int    `json:"stage_id"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
}

type Group struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	LeagueID  int    `json:"league_id"`
	SeasonID  int    `json:"season_id"`
	RoundID   *int   `json:"round_id,omitempty"`
	RoundName any    `json:"round_name,omitempty"`
	StageID   *int   `json:"stage_id,omitempty"`
	StageName string `json:"stage_name,omitempty"`
	Resource  string `json:"resource,omitempty"`
}

// Season is one edition of a league with its nested collections.
type Season struct {
	ID              int                 `json:"id"`
	Name            string              `json:"name"`
	LeagueID        int                 `json:"league_id"`
	IsCurrentSeason bool                `json:"is_current_season"`
	CurrentRoundID  *int                `json:"current_round_id,omitempty"`
	CurrentStageID  *int                `json:"current_stage_id,omitempty"`
	League          *Include[League]    `json:"league,omitempty"`
	Teams           *Include[[]Team]    `json:"teams,omitempty"`
	Stages          *Include[[]Stage]   `json:"stages,omitempty"`
	Rounds          *Include[[]Round]   `json:"rounds,omitempty"`
	Groups          *Include[[]Group]   `json:"groups,omitempty"`
	Fixtures        *Include[[]Fixture] `json:"fixtures,omitempty"`
}

// FixtureList returns the season's fixtures or nil when none were included.
func (s *Season) FixtureList() []Fixture {
	if s.Fixtures == nil {
		return nil
	}
	return s.Fixtures.Data
}

// --------------------------------------------------------------------------
// Fixtures
// --------------------------------------------------------------------------

type Scores struct {
	LocalTeamScore      int     `json:"localteam_score"`
	VisitorTeamScore    int     `json:"visitorteam_score"`
	LocalTeamPenScore   *int    `json:"localteam_pen_score"`
	VisitorTeamPenScore *int    `json:"visitorteam_pen_score"`
	HTScore             *string `json:"ht_score"`
	FTScore             *string `json:"ft_score"`
	ETScore             *string `json:"et_score"`
	PSScore             *string `json:"ps_score"`
}

type StartingAt struct {
	DateTime  string `json:"date_time"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Timestamp int64  `json:"timestamp"`
	Timezone  string `json:"timezone"`
}

type FixtureTime struct {
	Status      string     `json:"status"`
	StartingAt  StartingAt `json:"starting_at"`
	Minute      *int       `json:"minute"`
	Second      *int       `json:"second"`
	AddedTime   *int       `json:"added_time"`
	ExtraMinute *int       `json:"extra_minute"`
	InjuryTime  *int       `json:"injury_time"`
}

// Fixture is a single match. The fields in the second block change without
// affecting business state and are removed by the cleaner before hashing.
type Fixture struct {
	ID                    int             `json:"id"`
	LeagueID              int             `json:"league_id"`
	SeasonID              int             `json:"season_id"`
	StageID               *int            `json:"stage_id"`
	RoundID               *int            `json:"round_id"`
	GroupID               *int            `json:"group_id"`
	AggregateID           *int            `json:"aggregate_id"`
	LocalTeamID           int             `json:"localteam_id"`
	VisitorTeamID         int             `json:"visitorteam_id"`
	WinnerTeamID          *int            `json:"winner_team_id"`
	WinningOddsCalculated bool            `json:"winning_odds_calculated"`
	Scores                Scores          `json:"scores"`
	Time                  FixtureTime     `json:"time"`
	Leg                   string          `json:"leg,omitempty"`
	Deleted               bool            `json:"deleted"`
	Odds                  json.RawMessage `json:"odds,omitempty"`

	Assistants    json.RawMessage `json:"assistants,omitempty"`
	Attendance    *int            `json:"attendance,omitempty"`
	Coaches       json.RawMessage `json:"coaches,omitempty"`
	Colors        json.RawMessage `json:"colors,omitempty"`
	Commentaries  *bool           `json:"commentaries,omitempty"`
	Details       json.RawMessage `json:"details,omitempty"`
	Formations    json.RawMessage `json:"formations,omitempty"`
	NeutralVenue  *bool           `json:"neutral_venue,omitempty"`
	Pitch         json.RawMessage `json:"pitch,omitempty"`
	RefereeID     *int            `json:"referee_id,omitempty"`
	Standings     json.RawMessage `json:"standings,omitempty"`
	VenueID       *int            `json:"venue_id,omitempty"`
	WeatherReport json.RawMessage `json:"weather_report,omitempty"`
}

const providerLayout = "2006-01-02 15:04:05"

var (
	locMu sync.Mutex
	locs  = map[string]*time.Location{}
)

func location(name string) *time.Location {
	if name == "" || name == "UTC" {
		return time.UTC
	}
	locMu.Lock()
	defer locMu.Unlock()
	if l, ok := locs[name]; ok {
		return l
	}
	l, err := time.LoadLocation(name)
	if err != nil {
		l = nil
	}
	locs[name] = l
	return l
}

// StartingAt resolves the kickoff instant from date_time and timezone, falling
// back to the epoch timestamp when those cannot be parsed.
func (f *Fixture) StartingAt() time.Time {
	sa := f.Time.StartingAt
	if loc := location(sa.Timezone); loc != nil && sa.DateTime != "" {
		if t, err := time.ParseInLocation(providerLayout, sa.DateTime, loc); err == nil {
			return t
		}
	}
	return time.Unix(sa.Timestamp, 0).UTC()
}

// SetStartingAt writes t into every representation of the kickoff time.
func (f *Fixture) SetStartingAt(t time.Time) {
	t = t.UTC()
	f.Time.StartingAt = StartingAt{
		DateTime:  t.Format(providerLayout),
		Date:      t.Format("2006-01-02"),
		Time:      t.Format("15:04:05"),
		Timestamp: t.Unix(),
		Timezone:  "UTC",
	}
}

// Phase collapses the raw status code for scheduling.
func (f *Fixture) Phase() Phase {
	return NormalizeStatus(f.Time.Status).Phase()
}
