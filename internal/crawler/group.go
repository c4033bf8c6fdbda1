package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/albapepper/scoracle-crawl/internal/config"
	"github.com/albapepper/scoracle-crawl/internal/schedule"
)

// ErrUnknownCrawler is returned for a name not in the group.
var ErrUnknownCrawler = errors.New("unknown crawler")

// Group owns the enabled orchestrators and runs them side by side.
type Group struct {
	crawlers []Crawler
	byName   map[string]Crawler
	mode     config.CrawlMode
	logger   *slog.Logger

	seasons *Seasons
	live    *Live
}

// NewGroup builds the orchestrators listed in cfg.Crawlers. Standings are
// only built when enabled.
func NewGroup(deps Deps, classifier *schedule.Classifier) *Group {
	cfg := deps.Config
	g := &Group{
		byName: make(map[string]Crawler),
		mode:   cfg.CrawlMode,
		logger: deps.logger(),
	}
	enabled := make(map[string]bool, len(cfg.Crawlers))
	for _, name := range cfg.Crawlers {
		enabled[name] = true
	}

	for _, name := range config.AllCrawlers {
		if !enabled[name] {
			continue
		}
		var c Crawler
		switch name {
		case config.CrawlerContinents:
			c = NewContinents(deps)
		case config.CrawlerCountries:
			c = NewCountries(deps)
		case config.CrawlerLeagues:
			c = NewLeagues(deps)
		case config.CrawlerPlaceholders:
			c = NewPlaceholders(deps)
		case config.CrawlerSeasons:
			g.seasons = NewSeasons(deps)
			c = g.seasons
		case config.CrawlerStandings:
			if !cfg.Standings {
				continue
			}
			c = NewStandings(deps, g.seasons)
		case config.CrawlerLive:
			g.live = NewLive(deps, classifier)
			c = g.live
		}
		g.crawlers = append(g.crawlers, c)
		g.byName[name] = c
	}
	return g
}

// Get returns the named crawler.
func (g *Group) Get(name string) (Crawler, error) {
	c, ok := g.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCrawler, name)
	}
	return c, nil
}

// Seasons returns the season crawler, or nil when it is disabled.
func (g *Group) Seasons() *Seasons { return g.seasons }

// Live returns the live crawler, or nil when it is disabled.
func (g *Group) Live() *Live { return g.live }

// Statuses lists every crawler in start order.
func (g *Group) Statuses() []Status {
	out := make([]Status, 0, len(g.crawlers))
	for _, c := range g.crawlers {
		out = append(out, c.Status())
	}
	return out
}

// Run sets up every crawler and runs them concurrently: a single cycle each
// in once mode, until stopped otherwise. It returns when all of them have
// finished or ctx is cancelled.
func (g *Group) Run(ctx context.Context) error {
	for _, c := range g.crawlers {
		if err := c.Setup(ctx); err != nil {
			return fmt.Errorf("setup %s: %w", c.Name(), err)
		}
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, c := range g.crawlers {
		eg.Go(func() error {
			if g.mode == config.CrawlModeOnce {
				if err := c.RunOnce(ctx); err != nil {
					g.logger.Warn("Crawl incomplete", "crawler", c.Name(), "error", err)
				}
				return nil
			}
			err := c.Run(ctx)
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrAlreadyRunning) {
				return nil
			}
			return err
		})
	}
	err := eg.Wait()
	g.logger.Info("Crawlers finished", "crawlers", len(g.crawlers), "mode", g.mode)
	return err
}

// Trigger starts a crawler from the control API: one background cycle in
// once mode, the loop otherwise.
func (g *Group) Trigger(ctx context.Context, name string) error {
	c, err := g.Get(name)
	if err != nil {
		return err
	}
	if g.mode == config.CrawlModeOnce {
		go func() {
			if err := c.RunOnce(ctx); err != nil {
				g.logger.Warn("Triggered crawl failed", "crawler", name, "error", err)
			}
		}()
		return nil
	}
	return c.Start(ctx)
}

// StopCrawler stops one crawler.
func (g *Group) StopCrawler(name string) error {
	c, err := g.Get(name)
	if err != nil {
		return err
	}
	c.Stop()
	return nil
}

// Stop stops every crawler. Cycles in flight complete.
func (g *Group) Stop() {
	for _, c := range g.crawlers {
		c.Stop()
	}
}
