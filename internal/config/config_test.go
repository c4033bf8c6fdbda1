package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SEASONS", "17361, 18017")
	t.Setenv("DATABASE_URL", "postgres://localhost/scoracle")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Crawl.MockAPI)
	assert.Equal(t, SeasonModeManual, cfg.Crawl.SeasonMode)
	assert.Equal(t, []int{17361, 18017}, cfg.Crawl.Seasons)
	assert.Equal(t, CrawlModeUntilStopped, cfg.Crawl.CrawlMode)
	assert.Equal(t, time.Minute, cfg.Crawl.RefreshInterval)
	assert.Equal(t, AllCrawlers, cfg.Crawl.Crawlers)
	assert.Equal(t, DefaultPlaceholderTeamIDs, cfg.Crawl.PlaceholderTeamIDs)
	assert.Equal(t, []int{1326}, cfg.Crawl.LiveLeagueIDs)
	assert.Equal(t, 5*time.Second, cfg.DBStatementTimeout)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MOCK_API", "false")
	t.Setenv("SPORTMONKS_API_TOKEN", "secret")
	t.Setenv("SEASON_MODE", "AUTO")
	t.Setenv("CRAWL_MODE", "once")
	t.Setenv("TIMEOUT", "1500")
	t.Setenv("CRAWLERS", "live, seasons")
	t.Setenv("PERSIST_TO_DB", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Crawl.MockAPI)
	assert.Equal(t, SeasonModeAuto, cfg.Crawl.SeasonMode)
	assert.Equal(t, CrawlModeOnce, cfg.Crawl.CrawlMode)
	assert.Equal(t, 1500*time.Millisecond, cfg.Crawl.RefreshInterval)
	assert.True(t, cfg.CrawlerEnabled(CrawlerLive))
	assert.False(t, cfg.CrawlerEnabled(CrawlerCountries))
}

func TestLoadRejectsMalformedIDs(t *testing.T) {
	t.Setenv("SEASONS", "17361,abc")

	_, err := Load()
	assert.ErrorContains(t, err, `SEASONS: invalid id "abc"`)
}

func TestLoadRejectsStandingsWithoutSeasons(t *testing.T) {
	t.Setenv("CRAWLERS", "standings")
	t.Setenv("STANDINGS", "true")
	t.Setenv("SEASON_MODE", "manual")
	t.Setenv("SEASONS", "")
	t.Setenv("PERSIST_TO_DB", "false")

	_, err := Load()
	assert.ErrorContains(t, err, "SEASONS must list")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DatabaseURL:    "postgres://localhost/scoracle",
			DBPoolMaxConns: 1,
			Environment:    "development",
			Crawl: CrawlConfig{
				MockAPI:         true,
				SeasonMode:      SeasonModeManual,
				Seasons:         []int{17361},
				CrawlMode:       CrawlModeOnce,
				RefreshInterval: time.Minute,
				Crawlers:        AllCrawlers,
				PersistToDB:     true,
			},
		}
	}

	tests := []struct {
		name   string
		modify func(c *Config)
		want   string
	}{
		{"valid", func(c *Config) {}, ""},
		{"mock in production", func(c *Config) { c.Environment = "production" }, "MOCK_API must be false"},
		{"missing token", func(c *Config) { c.Crawl.MockAPI = false }, "SPORTMONKS_API_TOKEN is required"},
		{"missing database", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL is required"},
		{"database optional without persistence", func(c *Config) {
			c.DatabaseURL = ""
			c.Crawl.PersistToDB = false
		}, ""},
		{"manual without seasons", func(c *Config) { c.Crawl.Seasons = nil }, "SEASONS must list"},
		{"manual without season crawler", func(c *Config) {
			c.Crawl.Seasons = nil
			c.Crawl.Crawlers = []string{CrawlerLive}
		}, ""},
		{"manual standings without seasons", func(c *Config) {
			c.Crawl.Seasons = nil
			c.Crawl.Standings = true
			c.Crawl.Crawlers = []string{CrawlerStandings}
		}, "SEASONS must list"},
		{"manual standings disabled without seasons", func(c *Config) {
			c.Crawl.Seasons = nil
			c.Crawl.Crawlers = []string{CrawlerStandings}
		}, ""},
		{"unknown season mode", func(c *Config) { c.Crawl.SeasonMode = "latest" }, `unknown SEASON_MODE "latest"`},
		{"unknown crawl mode", func(c *Config) { c.Crawl.CrawlMode = "forever" }, `unknown CRAWL_MODE "forever"`},
		{"non positive interval", func(c *Config) { c.Crawl.RefreshInterval = 0 }, "TIMEOUT must be positive"},
		{"unknown crawler", func(c *Config) { c.Crawl.Crawlers = []string{"odds"} }, `unknown crawler "odds"`},
		{"empty pool", func(c *Config) { c.DBPoolMaxConns = 0 }, "DB_POOL_MAX_CONNS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.modify(c)
			err := c.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	c := &Config{Crawl: CrawlConfig{PersistToDB: true, SeasonMode: "x", CrawlMode: "y"}}
	err := c.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "DATABASE_URL")
	assert.ErrorContains(t, err, "SEASON_MODE")
	assert.ErrorContains(t, err, "CRAWL_MODE")
	assert.ErrorContains(t, err, "TIMEOUT")
}
