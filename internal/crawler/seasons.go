package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/albapepper/scoracle-crawl/internal/cleaner"
	"github.com/albapepper/scoracle-crawl/internal/config"
	"github.com/albapepper/scoracle-crawl/internal/gateway"
	"github.com/albapepper/scoracle-crawl/internal/provider"
)

// ErrNoSeasons is returned when no season id could be resolved.
var ErrNoSeasons = errors.New("no season ids to crawl")

// seasonIDs resolves the season set from configuration: the configured list
// in manual mode, the current season of every available league in auto mode.
// A failed discovery is retried on the next call.
type seasonIDs struct {
	deps Deps

	mu       sync.Mutex
	ids      []int
	resolved bool
}

func (s *seasonIDs) get(ctx context.Context, logger *slog.Logger) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return s.ids, nil
	}

	cfg := s.deps.Config
	switch cfg.SeasonMode {
	case config.SeasonModeAuto:
		leagues, err := s.deps.Source.FetchAvailableLeaguesWithCurrentSeasons(ctx)
		if err != nil {
			return nil, fmt.Errorf("discover current seasons: %w", err)
		}
		s.ids = provider.SeasonIDs(leagues)
		logger.Info("Discovered current seasons", "mock_api", cfg.MockAPI, "seasons", s.ids)
	default:
		s.ids = slices.Clone(cfg.Seasons)
	}
	if len(s.ids) == 0 {
		return nil, ErrNoSeasons
	}
	s.resolved = true
	return s.ids, nil
}

// --------------------------------------------------------------------------
// Seasons
// --------------------------------------------------------------------------

// Seasons crawls full seasons with their teams.
type Seasons struct {
	*Runner
	deps Deps
	ids  *seasonIDs
}

func NewSeasons(deps Deps) *Seasons {
	s := &Seasons{deps: deps, ids: &seasonIDs{deps: deps}}
	s.Runner = NewRunner(config.CrawlerSeasons, deps.Config.RefreshInterval, s.cycle, deps.logger())
	return s
}

// Setup resolves the season ids. A discovery failure is logged and retried at
// the start of the next cycle.
func (s *Seasons) Setup(ctx context.Context) error {
	logger := s.deps.logger().With("crawler", s.Name())
	ids, err := s.ids.get(ctx, logger)
	if err != nil {
		logger.Warn("Season ids not resolved yet", "error", err)
		return nil
	}
	logger.Info("Seasons to crawl", "mode", s.deps.Config.SeasonMode, "seasons", ids)
	return nil
}

// SeasonIDs returns the resolved ids, resolving them first when needed.
func (s *Seasons) SeasonIDs(ctx context.Context) ([]int, error) {
	return s.ids.get(ctx, s.deps.logger())
}

func (s *Seasons) cycle(ctx context.Context, logger *slog.Logger) (time.Duration, error) {
	ids, err := s.ids.get(ctx, logger)
	if err != nil {
		return 0, err
	}
	failed := s.crawl(ctx, logger, ids)
	logger.Info("Seasons crawled", "seasons", len(ids), "failed", failed)
	return 0, nil
}

// CrawlSeasons crawls ids outside the regular cycle, for example after a mock
// season was set back. It waits for a cycle in flight.
func (s *Seasons) CrawlSeasons(ctx context.Context, ids []int) int {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	return s.crawl(ctx, s.deps.logger().With("crawler", s.Name()), ids)
}

// crawl processes every id and returns how many failed. A failing season
// never aborts the others.
func (s *Seasons) crawl(ctx context.Context, logger *slog.Logger, ids []int) int {
	failed := 0
	for _, id := range ids {
		if err := s.crawlSeason(ctx, logger, id); err != nil {
			failed++
			logger.Warn("Failed to crawl season", "season_id", id, "error", err)
		}
	}
	return failed
}

func (s *Seasons) crawlSeason(ctx context.Context, logger *slog.Logger, id int) error {
	logger.Debug("Fetching season", "season_id", id)
	season, err := s.deps.Source.FetchFullSeason(ctx, id)
	if err != nil {
		return err
	}
	teams, err := s.deps.Source.FetchTeamsOfSeason(ctx, season.ID)
	if err != nil {
		return err
	}
	if season.League == nil {
		return gateway.ErrMissingLeague
	}

	cleaned := cleaner.CleanSeason(*season)
	cleaned.Teams = &provider.Include[[]provider.Team]{Data: teams}

	gw := s.deps.Gateway
	steps := []struct {
		name   string
		update func(context.Context, provider.Season) (gateway.Outcome, error)
	}{
		{"teams", gw.UpdateTeamsOfSeason},
		{"season", gw.UpdateSeason},
		{"stages", gw.UpdateStagesOfSeason},
		{"rounds", gw.UpdateRoundsOfSeason},
		{"groups", gw.UpdateGroupsOfSeason},
		{"league", gw.UpdateLeagueOfSeason},
		{"fixtures", gw.UpdateFixturesOfSeason},
	}
	for _, step := range steps {
		outcome, err := step.update(ctx, cleaned)
		if err != nil {
			return fmt.Errorf("update %s: %w", step.name, err)
		}
		logger.Debug("Season part updated", "season_id", id, "part", step.name, "outcome", outcome)
	}

	if s.deps.Snapshots != nil {
		if _, err := s.deps.Snapshots.WriteSeason(*season, teams); err != nil {
			logger.Warn("Failed to write season snapshot", "season_id", id, "error", err)
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Standings
// --------------------------------------------------------------------------

// Standings crawls the tables of the same season set as Seasons.
type Standings struct {
	*Runner
	deps Deps
	ids  *seasonIDs
}

// NewStandings shares the season ids of seasons so both resolve them once.
func NewStandings(deps Deps, seasons *Seasons) *Standings {
	ids := &seasonIDs{deps: deps}
	if seasons != nil {
		ids = seasons.ids
	}
	s := &Standings{deps: deps, ids: ids}
	s.Runner = NewRunner(config.CrawlerStandings, deps.Config.RefreshInterval, s.cycle, deps.logger())
	return s
}

func (s *Standings) Setup(ctx context.Context) error { return nil }

func (s *Standings) cycle(ctx context.Context, logger *slog.Logger) (time.Duration, error) {
	if !s.deps.Config.Standings {
		logger.Debug("Standings disabled")
		return 0, nil
	}
	ids, err := s.ids.get(ctx, logger)
	if err != nil {
		return 0, err
	}
	failed := 0
	for _, id := range ids {
		if err := s.crawlStandings(ctx, logger, id); err != nil {
			failed++
			logger.Warn("Failed to crawl standings", "season_id", id, "error", err)
		}
	}
	logger.Info("Standings crawled", "seasons", len(ids), "failed", failed)
	return 0, nil
}

func (s *Standings) crawlStandings(ctx context.Context, logger *slog.Logger, id int) error {
	tables, err := s.deps.Source.FetchSeasonStandings(ctx, id)
	if err != nil {
		return err
	}
	outcome, err := s.deps.Gateway.UpdateStandings(ctx, id, tables)
	if err != nil {
		return err
	}
	logger.Debug("Standings updated", "season_id", id, "tables", len(tables), "outcome", outcome)

	if s.deps.Snapshots != nil {
		if err := s.deps.Snapshots.WriteStandings(id, tables); err != nil {
			logger.Warn("Failed to write standings snapshot", "season_id", id, "error", err)
		}
	}
	return nil
}
