// Package gateway renders provider entities into statements and writes them
// to storage, retrying failed executions with a capped backoff. Aggregate
// payloads are hashed first so unchanged data is never written twice.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/albapepper/scoracle-crawl/internal/cache"
	"github.com/albapepper/scoracle-crawl/internal/provider"
	"github.com/albapepper/scoracle-crawl/internal/render"
	"github.com/albapepper/scoracle-crawl/internal/retry"
)

// MaxAttempts is the number of executions a statement gets before it is
// abandoned.
const MaxAttempts = 10

// ErrMissingLeague is returned for a season without its league include.
var ErrMissingLeague = errors.New("season has no league")

// Conn is a pooled connection. Release must be called exactly once.
type Conn interface {
	Exec(ctx context.Context, statement string) error
	Release()
}

// Pool hands out connections, blocking while all of them are in use.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
}

// Outcome reports what an update operation did.
type Outcome int

const (
	// Noop means there was nothing to write.
	Noop Outcome = iota
	// Unchanged means the payload hash matched the last persisted one.
	Unchanged
	Saved
	// Abandoned means every execution attempt failed.
	Abandoned
)

func (o Outcome) String() string {
	switch o {
	case Noop:
		return "noop"
	case Unchanged:
		return "unchanged"
	case Saved:
		return "saved"
	case Abandoned:
		return "abandoned"
	}
	return "outcome(" + strconv.Itoa(int(o)) + ")"
}

// Stats counts what the gateway did since start.
type Stats struct {
	Saved     int `json:"saved"`
	Unchanged int `json:"unchanged"`
	Abandoned int `json:"abandoned"`
	Retries   int `json:"retries"`
}

// Summary returns a human-readable summary of the counters.
func (s Stats) Summary() string {
	return fmt.Sprintf("saved=%d unchanged=%d abandoned=%d retries=%d",
		s.Saved, s.Unchanged, s.Abandoned, s.Retries)
}

// Options configures a Gateway.
type Options struct {
	// PersistToDB disables every storage access when false.
	PersistToDB bool
	// SQLOutput, when set, receives a copy of every rendered statement
	// under SQLDir for debugging.
	SQLOutput afero.Fs
	SQLDir    string
	Logger    *slog.Logger
}

// Gateway is safe for concurrent use.
type Gateway struct {
	pool     Pool
	renderer *render.Renderer
	cache    *cache.Cache
	persist  bool
	sqlOut   afero.Fs
	sqlDir   string
	retry    retry.Driver
	logger   *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a gateway. pool may be nil when persistence is disabled.
func New(pool Pool, renderer *render.Renderer, c *cache.Cache, opts Options) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		pool:     pool,
		renderer: renderer,
		cache:    c,
		persist:  opts.PersistToDB && pool != nil,
		sqlOut:   opts.SQLOutput,
		sqlDir:   opts.SQLDir,
		retry:    retry.New(MaxAttempts, logger),
		logger:   logger,
	}
}

// SetRetry replaces the retry driver. Tests use it to skip real delays.
func (g *Gateway) SetRetry(d retry.Driver) {
	d.MaxAttempts = MaxAttempts
	g.retry = d
}

// Stats returns a snapshot of the counters.
func (g *Gateway) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

func (g *Gateway) count(f func(s *Stats)) {
	g.mu.Lock()
	f(&g.stats)
	g.mu.Unlock()
}

// --------------------------------------------------------------------------
// Save
// --------------------------------------------------------------------------

// Save executes statement, retrying up to MaxAttempts executions. It returns
// true when the statement was written or there was nothing to write, false
// when every attempt failed. Failures are logged, never returned.
func (g *Gateway) Save(ctx context.Context, statement, label string) bool {
	if strings.TrimSpace(statement) == "" || !g.persist {
		return true
	}

	attempts, err := g.retry.Do(ctx, label, func(ctx context.Context) error {
		return g.exec(ctx, statement)
	})
	g.count(func(s *Stats) { s.Retries += attempts - 1 })
	if err != nil {
		g.count(func(s *Stats) { s.Abandoned++ })
		g.logger.Error("Abandoning statement", "label", label, "attempts", attempts, "error", err)
		return false
	}
	g.count(func(s *Stats) { s.Saved++ })
	g.logger.Debug("Statement saved", "label", label, "attempts", attempts)
	return true
}

// exec runs one attempt on its own connection.
func (g *Gateway) exec(ctx context.Context, statement string) error {
	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return conn.Exec(ctx, statement)
}

// --------------------------------------------------------------------------
// Rendering helpers
// --------------------------------------------------------------------------

// render executes a template and mirrors the result to the debug output.
func (g *Gateway) render(name string, data any, meta *cache.Entry, file string) (string, error) {
	statement, err := g.renderer.Render(name, data, meta)
	if err != nil {
		return "", err
	}
	if statement != "" && g.sqlOut != nil {
		g.writeSQL(file, statement)
	}
	return statement, nil
}

func (g *Gateway) writeSQL(file, statement string) {
	p := path.Join(g.sqlDir, file+".sql")
	if err := g.sqlOut.MkdirAll(path.Dir(p), 0o755); err != nil {
		g.logger.Warn("Failed to create SQL output directory", "path", p, "error", err)
		return
	}
	if err := afero.WriteFile(g.sqlOut, p, []byte(statement+"\n"), 0o644); err != nil {
		g.logger.Warn("Failed to write SQL output", "path", p, "error", err)
	}
}

func (g *Gateway) save(ctx context.Context, statement, label string) Outcome {
	if statement == "" {
		return Noop
	}
	if !g.Save(ctx, statement, label) {
		return Abandoned
	}
	return Saved
}

// reload refreshes the hash cache. A failed reload keeps the previous hashes
// and the update goes ahead on them.
func (g *Gateway) reload(ctx context.Context) {
	if err := g.cache.Reload(ctx); err != nil {
		g.logger.Warn("Failed to reload scanner log, using cached hashes", "error", err)
	}
}

// saveIfChanged hashes hashed under id and, when it differs from the last
// persisted hash, renders payload with the log entry and saves it.
func (g *Gateway) saveIfChanged(ctx context.Context, typ cache.EntryType, id string, hashed any, tmpl string, payload any, file, label string) (Outcome, error) {
	g.reload(ctx)

	entry, err := g.cache.CreateLogEntry(typ, hashed, id)
	if err != nil {
		return Noop, fmt.Errorf("hash %s: %w", label, err)
	}
	if entry.IsSameAsPrevious {
		g.count(func(s *Stats) { s.Unchanged++ })
		g.logger.Debug("Nothing to do, payload has not changed", "label", label, "id", id)
		return Unchanged, nil
	}

	statement, err := g.render(tmpl, payload, &entry, file)
	if err != nil {
		return Noop, err
	}
	outcome := g.save(ctx, statement, label)
	if outcome == Saved {
		g.cache.Remember(entry)
	}
	return outcome, nil
}

func (g *Gateway) renderAndSave(ctx context.Context, tmpl string, data any, file, label string) (Outcome, error) {
	statement, err := g.render(tmpl, data, nil, file)
	if err != nil {
		return Noop, err
	}
	if statement == "" {
		g.logger.Debug("Nothing to do, list is empty", "label", label)
	}
	return g.save(ctx, statement, label), nil
}

func seasonFile(id int, part string) string {
	return fmt.Sprintf("season-%d/season-%d-%s", id, id, part)
}

// --------------------------------------------------------------------------
// Aggregates with change detection
// --------------------------------------------------------------------------

// UpdateContinents writes the continent list when it changed.
func (g *Gateway) UpdateContinents(ctx context.Context, continents []provider.Continent) (Outcome, error) {
	if len(continents) == 0 {
		return Noop, nil
	}
	return g.saveIfChanged(ctx, cache.TypeAllContinents, "all-continents", continents,
		render.Continents, continents, "update-continents", "continents")
}

// UpdateCountries writes the country list when it changed.
func (g *Gateway) UpdateCountries(ctx context.Context, countries []provider.Country) (Outcome, error) {
	if len(countries) == 0 {
		return Noop, nil
	}
	return g.saveIfChanged(ctx, cache.TypeAllCountries, "all-countries", countries,
		render.Countries, countries, "update-countries", "countries")
}

// UpdateLeagues writes the league list when it changed.
func (g *Gateway) UpdateLeagues(ctx context.Context, leagues []provider.League) (Outcome, error) {
	if len(leagues) == 0 {
		return Noop, nil
	}
	return g.saveIfChanged(ctx, cache.TypeAllLeagues, "all-leagues", leagues,
		render.Leagues, leagues, "update-leagues", "leagues")
}

// UpdateSeason writes the base row of a cleaned season when the season
// payload changed. Teams, stages, rounds, groups and fixtures have their own
// operations.
func (g *Gateway) UpdateSeason(ctx context.Context, season provider.Season) (Outcome, error) {
	if season.League == nil {
		return Noop, fmt.Errorf("update season %d: %w", season.ID, ErrMissingLeague)
	}
	id := strconv.Itoa(season.ID)
	return g.saveIfChanged(ctx, cache.TypeSeason, id, season,
		render.Season, &season, seasonFile(season.ID, "base"), "season "+id)
}

// UpdateStandings writes the flattened tables of a season when they changed.
func (g *Gateway) UpdateStandings(ctx context.Context, seasonID int, tables []provider.Standing) (Outcome, error) {
	if len(tables) == 0 {
		return Noop, nil
	}
	id := strconv.Itoa(seasonID)
	data := render.StandingsData{
		SeasonID: seasonID,
		Tables:   tables,
		Entries:  provider.FlattenStandings(tables),
	}
	return g.saveIfChanged(ctx, cache.TypeStandings, id, tables,
		render.Standings, data, seasonFile(seasonID, "standings"), "standings (season "+id+")")
}

// UpdateTeams writes teams that belong to no season, such as bracket
// placeholders, when the list changed.
func (g *Gateway) UpdateTeams(ctx context.Context, teams []provider.Team) (Outcome, error) {
	if len(teams) == 0 {
		return Noop, nil
	}
	return g.saveIfChanged(ctx, cache.TypePlaceholders, "all-placeholders", teams,
		render.Teams, teams, "update-placeholder-teams", "placeholder teams")
}

// UpdateLiveFixtures hashes every fixture on its own and writes the changed
// ones in a single save. It returns how many fixtures changed.
func (g *Gateway) UpdateLiveFixtures(ctx context.Context, fixtures []provider.Fixture) (int, Outcome, error) {
	if len(fixtures) == 0 {
		return 0, Noop, nil
	}
	g.reload(ctx)

	var (
		b       strings.Builder
		entries []cache.Entry
	)
	for _, f := range fixtures {
		entry, err := g.cache.CreateLogEntry(cache.TypeLive, f, strconv.Itoa(f.ID))
		if err != nil {
			return 0, Noop, fmt.Errorf("hash fixture %d: %w", f.ID, err)
		}
		if entry.IsSameAsPrevious {
			g.count(func(s *Stats) { s.Unchanged++ })
			continue
		}
		statement, err := g.render(render.LiveFixture, []provider.Fixture{f}, &entry, "live/fixture-"+entry.ID)
		if err != nil {
			return 0, Noop, err
		}
		b.WriteString(statement)
		b.WriteString("\n")
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		g.logger.Debug("Nothing to do, live fixtures have not changed", "fixtures", len(fixtures))
		return 0, Unchanged, nil
	}

	outcome := g.save(ctx, b.String(), "live fixtures")
	if outcome == Saved {
		for _, e := range entries {
			g.cache.Remember(e)
		}
	}
	return len(entries), outcome, nil
}

// --------------------------------------------------------------------------
// Parts of a season, written unconditionally
// --------------------------------------------------------------------------

// UpdateLeagueOfSeason upserts the league a season belongs to.
func (g *Gateway) UpdateLeagueOfSeason(ctx context.Context, season provider.Season) (Outcome, error) {
	if season.League == nil {
		return Noop, fmt.Errorf("update league of season %d: %w", season.ID, ErrMissingLeague)
	}
	return g.renderAndSave(ctx, render.League, season.League.Data,
		seasonFile(season.ID, "current-season"), "league with current season")
}

// UpdateTeamsOfSeason upserts the teams of a season and links them to it.
func (g *Gateway) UpdateTeamsOfSeason(ctx context.Context, season provider.Season) (Outcome, error) {
	if season.Teams == nil || len(season.Teams.Data) == 0 {
		return Noop, nil
	}
	data := render.SeasonTeamsData{SeasonID: season.ID, Teams: season.Teams.Data}
	return g.renderAndSave(ctx, render.SeasonTeams, data,
		seasonFile(season.ID, "teams"), fmt.Sprintf("teams (season: %d)", season.ID))
}

// UpdateStagesOfSeason upserts the stages of a season.
func (g *Gateway) UpdateStagesOfSeason(ctx context.Context, season provider.Season) (Outcome, error) {
	if season.Stages == nil {
		return Noop, nil
	}
	return g.renderAndSave(ctx, render.Stages, season.Stages.Data,
		seasonFile(season.ID, "stages"), fmt.Sprintf("stages (season: %d)", season.ID))
}

// UpdateRoundsOfSeason upserts the rounds of a season.
func (g *Gateway) UpdateRoundsOfSeason(ctx context.Context, season provider.Season) (Outcome, error) {
	if season.Rounds == nil {
		return Noop, nil
	}
	return g.renderAndSave(ctx, render.Rounds, season.Rounds.Data,
		seasonFile(season.ID, "rounds"), fmt.Sprintf("rounds (season: %d)", season.ID))
}

// UpdateGroupsOfSeason upserts the groups of a season.
func (g *Gateway) UpdateGroupsOfSeason(ctx context.Context, season provider.Season) (Outcome, error) {
	if season.Groups == nil {
		return Noop, nil
	}
	return g.renderAndSave(ctx, render.Groups, season.Groups.Data,
		seasonFile(season.ID, "groups"), fmt.Sprintf("groups (season: %d)", season.ID))
}

// UpdateFixturesOfSeason upserts every fixture of a season.
func (g *Gateway) UpdateFixturesOfSeason(ctx context.Context, season provider.Season) (Outcome, error) {
	return g.renderAndSave(ctx, render.Fixtures, season.FixtureList(),
		seasonFile(season.ID, "fixtures"), fmt.Sprintf("fixtures (season: %d)", season.ID))
}
