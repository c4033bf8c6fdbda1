// Command crawler polls the football data provider and mirrors it into
// Postgres.
//
// Usage:
//
//	scoracle-crawler run
//	scoracle-crawler once --crawlers seasons,standings
//	scoracle-crawler schedule
//	scoracle-crawler schedule timeouts
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/albapepper/scoracle-crawl/internal/api"
	"github.com/albapepper/scoracle-crawl/internal/api/handler"
	"github.com/albapepper/scoracle-crawl/internal/cache"
	"github.com/albapepper/scoracle-crawl/internal/config"
	"github.com/albapepper/scoracle-crawl/internal/crawler"
	"github.com/albapepper/scoracle-crawl/internal/db"
	"github.com/albapepper/scoracle-crawl/internal/gateway"
	"github.com/albapepper/scoracle-crawl/internal/maintenance"
	"github.com/albapepper/scoracle-crawl/internal/provider"
	"github.com/albapepper/scoracle-crawl/internal/provider/mockdb"
	"github.com/albapepper/scoracle-crawl/internal/provider/sportmonks"
	"github.com/albapepper/scoracle-crawl/internal/render"
	"github.com/albapepper/scoracle-crawl/internal/schedule"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:          "scoracle-crawler",
		Short:        "Scoracle football data crawler",
		SilenceUsage: true,
	}

	root.AddCommand(runCmd())
	root.AddCommand(onceCmd())
	root.AddCommand(scheduleCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the crawlers and the control API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(nil, func(ctx context.Context, a *app) error {
				if a.scannerLog != nil {
					go maintenance.Start(ctx, a.scannerLog, maintenance.Config{
						PruneInterval: a.cfg.ScannerLogPruneInterval,
						RetentionDays: a.cfg.ScannerLogRetentionDays,
					}, logger)
				}

				router := api.NewRouter(handler.Deps{
					DB:           a.healthChecker(),
					Group:        a.group,
					Gateway:      a.gateway,
					Source:       a.source,
					SetBacker:    a.setBacker,
					Config:       a.cfg,
					CrawlContext: ctx,
					Logger:       logger,
				})
				addr := fmt.Sprintf("%s:%d", a.cfg.APIHost, a.cfg.APIPort)
				srv := &http.Server{
					Addr:         addr,
					Handler:      router,
					ReadTimeout:  10 * time.Second,
					WriteTimeout: 5 * time.Minute,
					IdleTimeout:  60 * time.Second,
				}
				go func() {
					logger.Info("Starting control API",
						"addr", addr,
						"environment", a.cfg.Environment,
						"docs", fmt.Sprintf("http://localhost:%d/docs/", a.cfg.APIPort))
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Error("Server failed", "error", err)
						os.Exit(1)
					}
				}()

				if a.cfg.Crawl.Autorun {
					go func() {
						if err := a.group.Run(ctx); err != nil {
							logger.Error("Crawlers failed", "error", err)
						}
					}()
				} else {
					logger.Info("Autorun disabled, crawlers wait for the control API")
				}

				// Wait for interrupt
				<-ctx.Done()
				logger.Info("Shutting down...")
				a.group.Stop()

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error("Shutdown error", "error", err)
				}
				logger.Info("Crawler stopped", "gateway", a.gateway.Stats().Summary())
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// once command
// --------------------------------------------------------------------------

func onceCmd() *cobra.Command {
	var crawlers []string
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run every enabled crawler for a single cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			override := func(cfg *config.Config) {
				cfg.Crawl.CrawlMode = config.CrawlModeOnce
				if len(crawlers) > 0 {
					cfg.Crawl.Crawlers = crawlers
				}
			}
			return withApp(override, func(ctx context.Context, a *app) error {
				start := time.Now()
				if err := a.group.Run(ctx); err != nil {
					return err
				}
				for _, s := range a.group.Statuses() {
					if s.LastError != "" {
						logger.Warn("Crawler finished with error", "crawler", s.Name, "error", s.LastError)
					}
				}
				logger.Info("Crawl finished",
					"duration", time.Since(start).Round(time.Second),
					"summary", a.gateway.Stats().Summary())

				if a.scannerLog != nil {
					_ = maintenance.AfterCrawl(ctx, a.scannerLog, a.cfg.ScannerLogRetentionDays, logger)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&crawlers, "crawlers", nil, "Crawlers to run (default: CRAWLERS)")
	return cmd
}

// --------------------------------------------------------------------------
// schedule command
// --------------------------------------------------------------------------

func scheduleCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Fetch live fixtures once and print the resulting poll schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("parse --at: %w", err)
				}
				now = t
			}
			override := func(cfg *config.Config) {
				cfg.Crawl.PersistToDB = false
				cfg.Crawl.PersistAsJSON = false
				cfg.Crawl.PersistSQL = false
			}
			return withApp(override, func(ctx context.Context, a *app) error {
				fixtures, err := a.source.FetchLive(ctx)
				if err != nil {
					return fmt.Errorf("fetch live fixtures: %w", err)
				}
				s := schedule.Extract(nil, fixtures)
				action := a.classifier.Process(s, now)
				return printJSON(map[string]interface{}{
					"now":      now.UTC().Format(time.RFC3339),
					"fixtures": len(fixtures),
					"schedule": s,
					"action":   action,
				})
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Classify at this RFC 3339 instant instead of now")

	cmd.AddCommand(&cobra.Command{
		Use:   "timeouts",
		Short: "Print the active timeout table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			table := schedule.DefaultTimeoutTable()
			if cfg.Crawl.TimeoutTableFile != "" {
				table, err = schedule.LoadTimeoutTable(afero.NewOsFs(), cfg.Crawl.TimeoutTableFile)
				if err != nil {
					return err
				}
			}
			return printJSON(table)
		},
	})
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// app is everything a command needs, wired from configuration.
type app struct {
	cfg        *config.Config
	pool       *db.Pool
	scannerLog *db.ScannerLog
	gateway    *gateway.Gateway
	source     provider.Source
	setBacker  provider.SetBacker
	classifier *schedule.Classifier
	group      *crawler.Group
}

func (a *app) healthChecker() handler.HealthChecker {
	if a.pool == nil {
		return nil
	}
	return a.pool
}

// withApp handles config loading, wiring, DB connection and context
// cancellation.
func withApp(override func(cfg *config.Config), fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		return err
	}
	if override != nil {
		override(cfg)
		if err := cfg.Validate(); err != nil {
			logger.Error("Invalid configuration", "error", err)
			return err
		}
	}
	configureLogger(cfg)

	a, err := wire(ctx, cfg)
	if err != nil {
		return err
	}
	if a.pool != nil {
		defer a.pool.Close()
	}
	return fn(ctx, a)
}

// applyTimeoutTable swaps in a reloaded table, rearming the live crawler's
// pending wait when it runs.
func (a *app) applyTimeoutTable(t schedule.TimeoutTable) {
	if live := a.group.Live(); live != nil {
		live.SetTimeoutTable(t)
		return
	}
	a.classifier.SetTimeoutTable(t, nil, time.Now())
}

func configureLogger(cfg *config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func wire(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	cc := cfg.Crawl

	// Storage
	var (
		pool   gateway.Pool
		hashes cache.HashSource
	)
	if cc.PersistToDB {
		logger.Info("Connecting to database...")
		p, err := db.New(ctx, cfg)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			return nil, err
		}
		logger.Info("Database connected",
			"min_conns", cfg.DBPoolMinConns,
			"max_conns", cfg.DBPoolMaxConns)
		a.pool = p
		a.scannerLog = db.NewScannerLog(p)
		pool = db.NewStorage(p)
		hashes = a.scannerLog
	}

	hashCache := cache.New(hashes, cc.ScannerVersion)
	if err := hashCache.Reload(ctx); err != nil {
		logger.Warn("Initial scanner log load failed", "error", err)
	}

	renderer, err := render.New()
	if err != nil {
		return nil, err
	}
	opts := gateway.Options{PersistToDB: cc.PersistToDB, Logger: logger}
	if cc.PersistSQL {
		opts.SQLOutput = afero.NewOsFs()
		opts.SQLDir = cc.SQLOutputDir
	}
	a.gateway = gateway.New(pool, renderer, hashCache, opts)

	// Data source
	if cc.MockAPI {
		mock := mockdb.New(afero.NewOsFs(), cc.MockDBPath, logger)
		a.source = mock
		a.setBacker = mock
		logger.Info("Using mock data source", "path", cc.MockDBPath)
	} else {
		a.source = sportmonks.NewClient(sportmonks.Options{
			BaseURL:           cfg.SportMonksBaseURL,
			APIToken:          cfg.SportMonksAPIToken,
			RequestsPerMinute: cfg.SportMonksRequestsPerMinute,
			LiveLeagueIDs:     cc.LiveLeagueIDs,
			Logger:            logger,
		})
		logger.Info("Using SportMonks data source", "base_url", cfg.SportMonksBaseURL)
	}

	var snapshots *mockdb.Writer
	if cc.PersistAsJSON {
		snapshots = mockdb.NewWriter(afero.NewOsFs(), cc.MockDBPath, logger)
	}

	// Live schedule timeouts, hot reloaded from the table file
	table := schedule.DefaultTimeoutTable()
	if cc.TimeoutTableFile != "" {
		table, err = schedule.LoadTimeoutTable(afero.NewOsFs(), cc.TimeoutTableFile)
		if err != nil {
			return nil, err
		}
	}
	a.classifier = schedule.NewClassifier(table)

	a.group = crawler.NewGroup(crawler.Deps{
		Source:    a.source,
		Gateway:   a.gateway,
		Snapshots: snapshots,
		Config:    cc,
		Logger:    logger,
	}, a.classifier)

	// The watcher starts only once the group exists.
	if cc.TimeoutTableFile != "" {
		if _, err := schedule.WatchTimeoutTable(cc.TimeoutTableFile, logger, a.applyTimeoutTable); err != nil {
			return nil, err
		}
	}

	logger.Info("Crawlers configured",
		"crawlers", cc.Crawlers,
		"mode", cc.CrawlMode,
		"season_mode", cc.SeasonMode,
		"persist_db", cc.PersistToDB,
		"persist_json", cc.PersistAsJSON,
		"persist_sql", cc.PersistSQL)
	return a, nil
}
