package crawler

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/albapepper/scoracle-crawl/internal/config"
	"github.com/albapepper/scoracle-crawl/internal/gateway"
	"github.com/albapepper/scoracle-crawl/internal/provider"
	"github.com/albapepper/scoracle-crawl/internal/provider/mockdb"
	"github.com/albapepper/scoracle-crawl/internal/retry"
)

// Crawler is the lifecycle every orchestrator exposes.
type Crawler interface {
	Name() string
	// Setup prepares the crawler before its first cycle.
	Setup(ctx context.Context) error
	RunOnce(ctx context.Context) error
	Run(ctx context.Context) error
	Start(ctx context.Context) error
	Stop()
	State() State
	Status() Status
}

// Deps are the collaborators shared by all orchestrators.
type Deps struct {
	Source  provider.Source
	Gateway *gateway.Gateway
	// Snapshots receives the fetched payloads when JSON persistence is on.
	Snapshots *mockdb.Writer
	Config    config.CrawlConfig
	Logger    *slog.Logger
	// RetrySleep replaces the backoff wait of provider retries.
	RetrySleep func(ctx context.Context, d time.Duration) error
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func (d Deps) retryDriver(maxAttempts int) retry.Driver {
	r := retry.New(maxAttempts, d.logger())
	if d.RetrySleep != nil {
		r.Sleep = d.RetrySleep
	}
	return r
}

func (d Deps) snapshotAll(logger *slog.Logger, name string, data any) {
	if d.Snapshots == nil {
		return
	}
	if err := d.Snapshots.WriteAll(name, data); err != nil {
		logger.Warn("Failed to write snapshot", "list", name, "error", err)
	}
}

// base implements the parts of Crawler every orchestrator shares.
type base struct {
	*Runner
}

func (base) Setup(ctx context.Context) error { return nil }

// --------------------------------------------------------------------------
// Aggregate lists
// --------------------------------------------------------------------------

// Continents crawls the continent list.
type Continents struct {
	base
	deps Deps
}

func NewContinents(deps Deps) *Continents {
	c := &Continents{deps: deps}
	c.Runner = NewRunner(config.CrawlerContinents, deps.Config.RefreshInterval, c.cycle, deps.logger())
	return c
}

func (c *Continents) cycle(ctx context.Context, logger *slog.Logger) (time.Duration, error) {
	continents, err := c.deps.Source.FetchAvailableContinents(ctx)
	if err != nil {
		return 0, err
	}
	continents = keepNamed(continents, func(c provider.Continent) string { return c.Name })
	outcome, err := c.deps.Gateway.UpdateContinents(ctx, continents)
	if err != nil {
		return 0, err
	}
	logger.Info("Continents crawled", "count", len(continents), "outcome", outcome)
	c.deps.snapshotAll(logger, "continents", continents)
	return 0, nil
}

// Countries crawls the country list.
type Countries struct {
	base
	deps Deps
}

func NewCountries(deps Deps) *Countries {
	c := &Countries{deps: deps}
	c.Runner = NewRunner(config.CrawlerCountries, deps.Config.RefreshInterval, c.cycle, deps.logger())
	return c
}

func (c *Countries) cycle(ctx context.Context, logger *slog.Logger) (time.Duration, error) {
	countries, err := c.deps.Source.FetchAvailableCountries(ctx)
	if err != nil {
		return 0, err
	}
	countries = keepNamed(countries, func(c provider.Country) string { return c.Name })
	outcome, err := c.deps.Gateway.UpdateCountries(ctx, countries)
	if err != nil {
		return 0, err
	}
	logger.Info("Countries crawled", "count", len(countries), "outcome", outcome)
	c.deps.snapshotAll(logger, "countries", countries)
	return 0, nil
}

// Leagues crawls the league list.
type Leagues struct {
	base
	deps Deps
}

func NewLeagues(deps Deps) *Leagues {
	l := &Leagues{deps: deps}
	l.Runner = NewRunner(config.CrawlerLeagues, deps.Config.RefreshInterval, l.cycle, deps.logger())
	return l
}

func (l *Leagues) cycle(ctx context.Context, logger *slog.Logger) (time.Duration, error) {
	leagues, err := l.deps.Source.FetchAvailableLeagues(ctx)
	if err != nil {
		return 0, err
	}
	leagues = keepNamed(leagues, func(l provider.League) string { return l.Name })
	outcome, err := l.deps.Gateway.UpdateLeagues(ctx, leagues)
	if err != nil {
		return 0, err
	}
	logger.Info("Leagues crawled", "count", len(leagues), "outcome", outcome)
	l.deps.snapshotAll(logger, "leagues", leagues)
	return 0, nil
}

// Placeholders crawls the bracket placeholder teams ("Winner Group A").
type Placeholders struct {
	base
	deps Deps
}

func NewPlaceholders(deps Deps) *Placeholders {
	p := &Placeholders{deps: deps}
	p.Runner = NewRunner(config.CrawlerPlaceholders, deps.Config.RefreshInterval, p.cycle, deps.logger())
	return p
}

func (p *Placeholders) cycle(ctx context.Context, logger *slog.Logger) (time.Duration, error) {
	ids := p.deps.Config.PlaceholderTeamIDs
	if len(ids) == 0 {
		logger.Debug("No placeholder teams configured")
		return 0, nil
	}
	teams, err := p.deps.Source.FetchTeams(ctx, ids)
	if err != nil {
		return 0, err
	}
	teams = keepNamed(teams, func(t provider.Team) string { return t.Name })
	outcome, err := p.deps.Gateway.UpdateTeams(ctx, teams)
	if err != nil {
		return 0, err
	}
	logger.Info("Placeholder teams crawled", "count", len(teams), "outcome", outcome)
	p.deps.snapshotAll(logger, "placeholders", teams)
	return 0, nil
}

// keepNamed drops entries whose name is blank.
func keepNamed[T any](items []T, name func(T) string) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(name(it)) != "" {
			out = append(out, it)
		}
	}
	return out
}
