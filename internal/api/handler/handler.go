// Package handler provides the HTTP handlers of the crawler control API.
// Handlers read state straight from the crawler group and the gateway; there
// is no service layer.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/albapepper/scoracle-crawl/internal/api/respond"
	"github.com/albapepper/scoracle-crawl/internal/config"
	"github.com/albapepper/scoracle-crawl/internal/crawler"
	"github.com/albapepper/scoracle-crawl/internal/gateway"
	"github.com/albapepper/scoracle-crawl/internal/provider"
)

// HealthChecker verifies database connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the collaborators of the handlers. DB is nil when persistence is
// disabled; SetBacker is nil outside mock mode.
type Deps struct {
	DB        HealthChecker
	Group     *crawler.Group
	Gateway   *gateway.Gateway
	Source    provider.Source
	SetBacker provider.SetBacker
	Config    *config.Config
	// Crawls triggered over HTTP run under this context, not the request's.
	CrawlContext context.Context
	Logger       *slog.Logger
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	db        HealthChecker
	group     *crawler.Group
	gateway   *gateway.Gateway
	source    provider.Source
	setBacker provider.SetBacker
	cfg       *config.Config
	crawlCtx  context.Context
	logger    *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	crawlCtx := deps.CrawlContext
	if crawlCtx == nil {
		crawlCtx = context.Background()
	}
	return &Handler{
		db:        deps.DB,
		group:     deps.Group,
		gateway:   deps.Gateway,
		source:    deps.Source,
		setBacker: deps.SetBacker,
		cfg:       deps.Config,
		crawlCtx:  crawlCtx,
		logger:    logger,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns service name, version, crawl mode and data source.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	source := "sportmonks"
	if h.cfg.Crawl.MockAPI {
		source = "mock"
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":        "Scoracle Crawler",
		"version":     h.cfg.Crawl.ScannerVersion,
		"status":      "running",
		"docs":        "/docs",
		"crawl_mode":  h.cfg.Crawl.CrawlMode,
		"season_mode": h.cfg.Crawl.SeasonMode,
		"source":      source,
		"persistence": map[string]bool{
			"database": h.cfg.Crawl.PersistToDB,
			"json":     h.cfg.Crawl.PersistAsJSON,
			"sql":      h.cfg.Crawl.PersistSQL,
		},
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity. Reports "disabled" when the crawler does not persist to a database.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"database":  "disabled",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	if err := h.db.HealthCheck(r.Context()); err != nil {
		h.logger.Warn("Database health check failed", "error", err)
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
