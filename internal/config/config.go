// Package config provides centralized configuration loaded from environment
// variables. Values are read once at startup and never change during a run.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Crawl modes
// --------------------------------------------------------------------------

// SeasonMode selects how the season crawler finds its season ids.
type SeasonMode string

const (
	// SeasonModeManual crawls the ids listed in SEASONS.
	SeasonModeManual SeasonMode = "manual"
	// SeasonModeAuto asks the provider for the current season of every league.
	SeasonModeAuto SeasonMode = "auto"
)

// CrawlMode selects single-pass or continuous crawling.
type CrawlMode string

const (
	CrawlModeOnce         CrawlMode = "once"
	CrawlModeUntilStopped CrawlMode = "until-stopped"
)

// Crawler names accepted in CRAWLERS.
const (
	CrawlerContinents   = "continents"
	CrawlerCountries    = "countries"
	CrawlerLeagues      = "leagues"
	CrawlerSeasons      = "seasons"
	CrawlerStandings    = "standings"
	CrawlerLive         = "live"
	CrawlerPlaceholders = "placeholders"
)

// AllCrawlers lists every orchestrator in start order.
var AllCrawlers = []string{
	CrawlerContinents, CrawlerCountries, CrawlerLeagues, CrawlerPlaceholders,
	CrawlerSeasons, CrawlerStandings, CrawlerLive,
}

// DefaultPlaceholderTeamIDs are the provider's "winner of ..." teams used in
// knockout brackets before the real participant is known.
var DefaultPlaceholderTeamIDs = []int{
	260165, 260166,
	260177, 260178, 260179, 260180, 260181, 260182, 260183, 260184, 260185, 260186,
	260262, 260263, 260264, 260265, 260266, 260267, 260268, 260269,
	260270, 260271, 260272, 260273, 260274, 260275, 260276, 260277,
	260284, 260285, 260286, 260287,
}

// --------------------------------------------------------------------------
// Config structs, populated from environment variables
// --------------------------------------------------------------------------

// CrawlConfig drives the orchestrators.
type CrawlConfig struct {
	MockAPI         bool
	SeasonMode      SeasonMode
	Seasons         []int
	Standings       bool
	CrawlMode       CrawlMode
	RefreshInterval time.Duration
	Autorun         bool
	Crawlers        []string

	PersistAsJSON bool
	PersistToDB   bool
	PersistSQL    bool
	SQLOutputDir  string
	MockDBPath    string

	PlaceholderTeamIDs []int
	LiveLeagueIDs      []int
	TimeoutTableFile   string
	ScannerVersion     string
}

type Config struct {
	// Database
	DatabaseURL        string
	DBPoolMinConns     int
	DBPoolMaxConns     int
	DBPoolMaxLife      time.Duration
	DBStatementTimeout time.Duration

	// Control API
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool
	LogLevel    string

	// CORS
	CORSAllowOrigins []string

	// Provider
	SportMonksAPIToken          string
	SportMonksBaseURL           string
	SportMonksRequestsPerMinute int

	// Maintenance
	ScannerLogRetentionDays int
	ScannerLogPruneInterval time.Duration

	Crawl CrawlConfig
}

// Load reads configuration from environment variables with sensible defaults
// and validates it.
func Load() (*Config, error) {
	seasons, err := envIntList("SEASONS", nil)
	if err != nil {
		return nil, err
	}
	placeholders, err := envIntList("PLACEHOLDER_TEAM_IDS", DefaultPlaceholderTeamIDs)
	if err != nil {
		return nil, err
	}
	liveLeagues, err := envIntList("LIVE_LEAGUE_IDS", []int{1326})
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:        envOr("DATABASE_URL", ""),
		DBPoolMinConns:     envInt("DB_POOL_MIN_CONNS", 0),
		DBPoolMaxConns:     envInt("DB_POOL_MAX_CONNS", 1),
		DBPoolMaxLife:      time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,
		DBStatementTimeout: time.Duration(envInt("DB_STATEMENT_TIMEOUT_MS", 5000)) * time.Millisecond,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 3000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),
		LogLevel:    envOr("LOG_LEVEL", "info"),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:4200",
		}),

		SportMonksAPIToken:          envOr("SPORTMONKS_API_TOKEN", envOr("API_TOKEN", "")),
		SportMonksBaseURL:           envOr("SPORTMONKS_BASE_URL", envOr("API_BASE_URL", "https://soccer.sportmonks.com/api/v2.0")),
		SportMonksRequestsPerMinute: envInt("SPORTMONKS_REQUESTS_PER_MINUTE", 180),

		ScannerLogRetentionDays: envInt("SCANNER_LOG_RETENTION_DAYS", 30),
		ScannerLogPruneInterval: time.Duration(envInt("SCANNER_LOG_PRUNE_INTERVAL_MINUTES", 360)) * time.Minute,

		Crawl: CrawlConfig{
			MockAPI:         envBool("MOCK_API", true),
			SeasonMode:      SeasonMode(strings.ToLower(envOr("SEASON_MODE", string(SeasonModeManual)))),
			Seasons:         seasons,
			Standings:       envBool("STANDINGS", false),
			CrawlMode:       CrawlMode(strings.ToLower(envOr("CRAWL_MODE", string(CrawlModeUntilStopped)))),
			RefreshInterval: time.Duration(envInt("TIMEOUT", 60000)) * time.Millisecond,
			Autorun:         envBool("AUTORUN", true),
			Crawlers:        envList("CRAWLERS", AllCrawlers),

			PersistAsJSON: envBool("PERSIST_AS_JSON", false),
			PersistToDB:   envBool("PERSIST_TO_DB", true),
			PersistSQL:    envBool("PERSIST_SQL", false),
			SQLOutputDir:  envOr("SQL_OUTPUT_DIR", "./dist/sql"),
			MockDBPath:    envOr("PATH_TO_MOCK_FILES", "./mock-db"),

			PlaceholderTeamIDs: placeholders,
			LiveLeagueIDs:      liveLeagues,
			TimeoutTableFile:   envOr("SCHEDULE_TIMEOUTS_FILE", ""),
			ScannerVersion:     envOr("SCANNER_VERSION", "dev"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the crawler must not start with.
func (c *Config) Validate() error {
	var errs []error
	cc := c.Crawl

	if cc.MockAPI && c.IsProduction() {
		errs = append(errs, errors.New("MOCK_API must be false in production"))
	}
	if !cc.MockAPI && c.SportMonksAPIToken == "" {
		errs = append(errs, errors.New("SPORTMONKS_API_TOKEN is required when MOCK_API=false"))
	}
	if cc.PersistToDB && c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required when PERSIST_TO_DB=true"))
	}
	switch cc.SeasonMode {
	case SeasonModeAuto:
	case SeasonModeManual:
		needsSeasons := c.CrawlerEnabled(CrawlerSeasons) || (cc.Standings && c.CrawlerEnabled(CrawlerStandings))
		if len(cc.Seasons) == 0 && needsSeasons {
			errs = append(errs, errors.New("SEASONS must list at least one season id when SEASON_MODE=manual"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SEASON_MODE %q", cc.SeasonMode))
	}
	switch cc.CrawlMode {
	case CrawlModeOnce, CrawlModeUntilStopped:
	default:
		errs = append(errs, fmt.Errorf("unknown CRAWL_MODE %q", cc.CrawlMode))
	}
	if cc.RefreshInterval <= 0 {
		errs = append(errs, errors.New("TIMEOUT must be positive"))
	}
	for _, name := range cc.Crawlers {
		if !knownCrawler(name) {
			errs = append(errs, fmt.Errorf("unknown crawler %q in CRAWLERS", name))
		}
	}
	if c.DBPoolMaxConns < 1 {
		errs = append(errs, errors.New("DB_POOL_MAX_CONNS must be at least 1"))
	}
	return errors.Join(errs...)
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// CrawlerEnabled reports whether name is listed in CRAWLERS.
func (c *Config) CrawlerEnabled(name string) bool {
	for _, n := range c.Crawl.Crawlers {
		if n == name {
			return true
		}
	}
	return false
}

func knownCrawler(name string) bool {
	for _, n := range AllCrawlers {
		if n == name {
			return true
		}
	}
	return false
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// envIntList parses a comma-separated id list. A malformed id is an error.
func envIntList(key string, fallback []int) ([]int, error) {
	parts := envList(key, nil)
	if parts == nil {
		return fallback, nil
	}
	result := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid id %q", key, p)
		}
		result = append(result, n)
	}
	return result, nil
}
