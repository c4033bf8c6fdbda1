// Package mockdb is the file-backed data source used during development.
// Seasons are stored as provider JSON under {root}/{seasonId}/ and aggregate
// lists under {root}/_all/. A season can be rewound to an earlier point in
// time so live crawling can be replayed.
package mockdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/albapepper/scoracle-crawl/internal/provider"
)

// LiveHorizon is how far ahead FetchLive looks for fixtures about to start.
const LiveHorizon = 3 * time.Hour

// AllDir holds the aggregate lists.
const AllDir = "_all"

// Source reads provider payloads from an afero filesystem.
type Source struct {
	fs     afero.Fs
	root   string
	now    func() time.Time
	logger *slog.Logger

	mu       sync.RWMutex
	setBacks map[int]time.Time
}

var (
	_ provider.Source    = (*Source)(nil)
	_ provider.SetBacker = (*Source)(nil)
)

// New returns a source rooted at root.
func New(fsys afero.Fs, root string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		fs:       fsys,
		root:     root,
		now:      time.Now,
		logger:   logger,
		setBacks: make(map[int]time.Time),
	}
}

// SetClock replaces the clock FetchLive compares kickoff times against.
func (s *Source) SetClock(now func() time.Time) {
	s.now = now
}

// --------------------------------------------------------------------------
// Set-back
// --------------------------------------------------------------------------

// SetBackSeasonToDate rewinds every fixture of the season that starts after
// at. includeGame moves the boundary one minute earlier so a fixture kicking
// off exactly at at is rewound too.
func (s *Source) SetBackSeasonToDate(seasonID int, at time.Time, includeGame bool) (string, error) {
	if _, err := s.fs.Stat(s.seasonFile(seasonID)); err != nil {
		return "", fmt.Errorf("set back season %d: %w", seasonID, provider.ErrNotFound)
	}
	if includeGame {
		at = at.Add(-time.Minute)
	}
	s.mu.Lock()
	s.setBacks[seasonID] = at
	s.mu.Unlock()

	s.logger.Info("Season set back", "season_id", seasonID, "at", at.UTC())
	return fmt.Sprintf("Successfully set back date of season %d to %s.", seasonID, at.UTC().Format(time.RFC3339)), nil
}

// SetBackOf returns the active set-back boundary of a season.
func (s *Source) SetBackOf(seasonID int) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.setBacks[seasonID]
	return at, ok
}

// applySetBack resets fixtures kicking off after the boundary to not started.
func applySetBack(season *provider.Season, at time.Time) {
	if season.Fixtures == nil {
		return
	}
	fixtures := make([]provider.Fixture, len(season.Fixtures.Data))
	for i, f := range season.Fixtures.Data {
		if f.StartingAt().After(at) {
			f.WinnerTeamID = nil
			f.WinningOddsCalculated = false
			f.Scores = provider.Scores{}
			f.Time.Status = "NS"
			f.Time.Minute = nil
		}
		fixtures[i] = f
	}
	season.Fixtures = &provider.Include[[]provider.Fixture]{Data: fixtures}
}

// --------------------------------------------------------------------------
// Seasons
// --------------------------------------------------------------------------

func (s *Source) seasonDir(id int) string {
	return path.Join(s.root, strconv.Itoa(id))
}

func (s *Source) seasonFile(id int) string {
	return path.Join(s.seasonDir(id), strconv.Itoa(id)+".json")
}

// FetchFullSeason reads {root}/{id}/{id}.json and applies any set-back.
func (s *Source) FetchFullSeason(ctx context.Context, seasonID int) (*provider.Season, error) {
	var season provider.Season
	if err := s.readJSON(s.seasonFile(seasonID), &season); err != nil {
		return nil, fmt.Errorf("fetch season %d: %w", seasonID, err)
	}
	if at, ok := s.SetBackOf(seasonID); ok {
		applySetBack(&season, at)
	}
	return &season, nil
}

func (s *Source) FetchTeamsOfSeason(ctx context.Context, seasonID int) ([]provider.Team, error) {
	var teams []provider.Team
	if err := s.readJSON(path.Join(s.seasonDir(seasonID), "teams.json"), &teams); err != nil {
		return nil, fmt.Errorf("fetch teams of season %d: %w", seasonID, err)
	}
	return teams, nil
}

func (s *Source) FetchSeasonStandings(ctx context.Context, seasonID int) ([]provider.Standing, error) {
	var tables []provider.Standing
	if err := s.readJSON(path.Join(s.seasonDir(seasonID), "standing.json"), &tables); err != nil {
		return nil, fmt.Errorf("fetch standings of season %d: %w", seasonID, err)
	}
	return tables, nil
}

// SeasonIDs lists the numeric directories under root that hold a season file.
func (s *Source) SeasonIDs() ([]int, error) {
	entries, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		return nil, fmt.Errorf("list mock seasons: %w", err)
	}
	var ids []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := strconv.Atoi(e.Name())
		if err != nil || id <= 0 {
			continue
		}
		if ok, _ := afero.Exists(s.fs, s.seasonFile(id)); !ok {
			s.logger.Warn("Mock season directory without season file", "season_id", id)
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// FetchAvailableLeaguesWithCurrentSeasons turns every stored season into its
// league with the season as current season include.
func (s *Source) FetchAvailableLeaguesWithCurrentSeasons(ctx context.Context) ([]provider.League, error) {
	ids, err := s.SeasonIDs()
	if err != nil {
		return nil, err
	}
	leagues := make([]provider.League, 0, len(ids))
	for _, id := range ids {
		season, err := s.FetchFullSeason(ctx, id)
		if err != nil {
			s.logger.Warn("Skipping unreadable mock season", "season_id", id, "error", err)
			continue
		}
		var league provider.League
		if season.League != nil {
			league = season.League.Data
		} else {
			league.ID = season.LeagueID
		}
		current := *season
		league.Season = &provider.Include[provider.Season]{Data: current}
		leagues = append(leagues, league)
	}
	return leagues, nil
}

// FetchLive returns the fixtures of every stored season that are in play or
// kick off within LiveHorizon.
func (s *Source) FetchLive(ctx context.Context) ([]provider.Fixture, error) {
	ids, err := s.SeasonIDs()
	if err != nil {
		return nil, err
	}
	now := s.now()
	var live []provider.Fixture
	for _, id := range ids {
		season, err := s.FetchFullSeason(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, f := range season.FixtureList() {
			start := f.StartingAt()
			switch {
			case f.Phase() == provider.PhaseInPlay:
				live = append(live, f)
			case f.Phase() == provider.PhaseNotFinished && !start.Before(now) && start.Sub(now) <= LiveHorizon:
				live = append(live, f)
			}
		}
	}
	return live, nil
}

// --------------------------------------------------------------------------
// Aggregate lists
// --------------------------------------------------------------------------

func (s *Source) allFile(name string) string {
	return path.Join(s.root, AllDir, name+".json")
}

// readAll reads an aggregate list. A missing file is an empty list.
func readAll[T any](s *Source, name string) ([]T, error) {
	var out []T
	err := s.readJSON(s.allFile(name), &out)
	if errors.Is(err, provider.ErrNotFound) {
		s.logger.Debug("No mock data", "list", name)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	return out, nil
}

func (s *Source) FetchAvailableContinents(ctx context.Context) ([]provider.Continent, error) {
	return readAll[provider.Continent](s, "continents")
}

func (s *Source) FetchAvailableCountries(ctx context.Context) ([]provider.Country, error) {
	return readAll[provider.Country](s, "countries")
}

func (s *Source) FetchAvailableLeagues(ctx context.Context) ([]provider.League, error) {
	return readAll[provider.League](s, "leagues")
}

// FetchTeams returns the stored placeholder teams whose id is requested.
func (s *Source) FetchTeams(ctx context.Context, teamIDs []int) ([]provider.Team, error) {
	all, err := readAll[provider.Team](s, "placeholders")
	if err != nil {
		return nil, err
	}
	wanted := make(map[int]bool, len(teamIDs))
	for _, id := range teamIDs {
		wanted[id] = true
	}
	var teams []provider.Team
	for _, t := range all {
		if wanted[t.ID] {
			teams = append(teams, t)
		}
	}
	return teams, nil
}

func (s *Source) readJSON(p string, out any) error {
	b, err := afero.ReadFile(s.fs, p)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", p, provider.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", p, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s: %w", p, err)
	}
	return nil
}
