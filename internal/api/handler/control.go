package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/scoracle-crawl/internal/api/respond"
	"github.com/albapepper/scoracle-crawl/internal/config"
	"github.com/albapepper/scoracle-crawl/internal/crawler"
	"github.com/albapepper/scoracle-crawl/internal/provider"
	"github.com/albapepper/scoracle-crawl/internal/provider/mockdb"
	"github.com/albapepper/scoracle-crawl/internal/schedule"
)

// maxBody caps control request bodies.
const maxBody = 1 << 16

// --------------------------------------------------------------------------
// Crawlers
// --------------------------------------------------------------------------

// ListCrawlers returns the state of every enabled crawler.
// @Summary List crawlers
// @Description Returns the lifecycle state, cycle count and last error of every enabled crawler.
// @Tags crawlers
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /crawlers [get]
func (h *Handler) ListCrawlers(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"mode":     h.cfg.Crawl.CrawlMode,
		"crawlers": h.group.Statuses(),
	})
}

// RunCrawler starts a crawler: one background cycle in once mode, its loop
// otherwise.
// @Summary Run a crawler
// @Tags crawlers
// @Produce json
// @Param name path string true "Crawler name"
// @Success 202 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Router /crawlers/{name}/run [post]
func (h *Handler) RunCrawler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := h.group.Trigger(h.crawlCtx, name)
	switch {
	case errors.Is(err, crawler.ErrUnknownCrawler):
		respond.WriteError(w, http.StatusNotFound, "UNKNOWN_CRAWLER", err.Error())
		return
	case errors.Is(err, crawler.ErrAlreadyRunning):
		respond.WriteError(w, http.StatusConflict, "ALREADY_RUNNING", err.Error())
		return
	case err != nil:
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "TRIGGER_FAILED", "Failed to start crawler", err.Error())
		return
	}
	h.logger.Info("Crawler triggered", "crawler", name)
	respond.WriteJSONObject(w, http.StatusAccepted, map[string]string{
		"crawler": name,
		"status":  "triggered",
	})
}

// StopCrawler stops a crawler after its current cycle.
// @Summary Stop a crawler
// @Tags crawlers
// @Produce json
// @Param name path string true "Crawler name"
// @Success 200 {object} crawler.Status
// @Failure 404 {object} respond.ErrorResponse
// @Router /crawlers/{name}/stop [post]
func (h *Handler) StopCrawler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	c, err := h.group.Get(name)
	if err != nil {
		respond.WriteError(w, http.StatusNotFound, "UNKNOWN_CRAWLER", err.Error())
		return
	}
	c.Stop()
	h.logger.Info("Crawler stopped", "crawler", name)
	respond.WriteJSONObject(w, http.StatusOK, c.Status())
}

// --------------------------------------------------------------------------
// Live schedule
// --------------------------------------------------------------------------

func (h *Handler) live(w http.ResponseWriter) *crawler.Live {
	live := h.group.Live()
	if live == nil {
		respond.WriteError(w, http.StatusNotFound, "LIVE_DISABLED", "The live crawler is not enabled")
	}
	return live
}

// GetSchedule returns the live schedule, the last action and the timeout table.
// @Summary Live schedule
// @Tags schedule
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Router /schedule [get]
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	live := h.live(w)
	if live == nil {
		return
	}
	s, action := live.Schedule()
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"schedule": s,
		"action":   action,
		"timeouts": live.TimeoutTable(),
	})
}

// PutTimeouts replaces the timeout table. The body maps mode names to
// milliseconds; modes left out use DEFAULT.
// @Summary Replace the timeout table
// @Tags schedule
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /schedule/timeouts [put]
func (h *Handler) PutTimeouts(w http.ResponseWriter, r *http.Request) {
	live := h.live(w)
	if live == nil {
		return
	}
	var table schedule.TimeoutTable
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&table); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_TIMEOUTS", "Invalid timeout table", err.Error())
		return
	}
	action := live.SetTimeoutTable(table)
	h.logger.Info("Timeout table replaced", "mode", action.Mode, "timeout", action.Timeout)
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"action":   action,
		"timeouts": live.TimeoutTable(),
	})
}

// --------------------------------------------------------------------------
// Gateway
// --------------------------------------------------------------------------

// GetGatewayStats returns the persistence counters.
// @Summary Persistence counters
// @Tags gateway
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /gateway/stats [get]
func (h *Handler) GetGatewayStats(w http.ResponseWriter, r *http.Request) {
	stats := h.gateway.Stats()
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"stats":   stats,
		"summary": stats.Summary(),
	})
}

// --------------------------------------------------------------------------
// Mock source
// --------------------------------------------------------------------------

type setBackRequest struct {
	SeasonID    int    `json:"season_id"`
	Date        string `json:"date"`
	IncludeGame bool   `json:"include_game"`
}

// setBackBoundary is implemented by sources that expose the active set-back.
type setBackBoundary interface {
	SetBackOf(seasonID int) (time.Time, bool)
}

// GetMockSeason lists the fixtures of a mock season as the crawler sees them.
// @Summary Mock season fixtures
// @Tags mock
// @Produce json
// @Param id path int true "Season ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /mock/seasons/{id} [get]
func (h *Handler) GetMockSeason(w http.ResponseWriter, r *http.Request) {
	if h.setBacker == nil {
		respond.WriteError(w, http.StatusNotFound, "MOCK_DISABLED", "The mock source is not in use")
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_ID", "Season id must be an integer")
		return
	}

	season, err := h.source.FetchFullSeason(r.Context(), id)
	if errors.Is(err, provider.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "SEASON_NOT_FOUND", err.Error())
		return
	}
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "FETCH_FAILED", "Failed to read season", err.Error())
		return
	}
	teams, err := h.source.FetchTeamsOfSeason(r.Context(), id)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "FETCH_FAILED", "Failed to read season teams", err.Error())
		return
	}

	resp := map[string]interface{}{
		"season_id": season.ID,
		"name":      season.Name,
		"fixtures":  mockdb.SummarizeFixtures(season.FixtureList(), teams),
	}
	if b, ok := h.setBacker.(setBackBoundary); ok {
		if at, ok := b.SetBackOf(id); ok {
			resp["set_back_to"] = at.UTC().Format(time.RFC3339)
		}
	}
	respond.WriteJSONObject(w, http.StatusOK, resp)
}

// SetBack rewinds a mock season to a date. In once mode a configured season
// is crawled again right away.
// @Summary Set back a mock season
// @Tags mock
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 403 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /mock/set-back [post]
func (h *Handler) SetBack(w http.ResponseWriter, r *http.Request) {
	if h.setBacker == nil {
		respond.WriteError(w, http.StatusForbidden, "MOCK_DISABLED", "Set-back is only available with the mock source")
		return
	}
	var req setBackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "Invalid set-back request", err.Error())
		return
	}
	at, err := parseDate(req.Date)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_DATE", "Date must be RFC 3339 or YYYY-MM-DD HH:MM:SS", err.Error())
		return
	}

	msg, err := h.setBacker.SetBackSeasonToDate(req.SeasonID, at, req.IncludeGame)
	if errors.Is(err, provider.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "SEASON_NOT_FOUND", err.Error())
		return
	}
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "SET_BACK_FAILED", "Failed to set back season", err.Error())
		return
	}

	resp := map[string]interface{}{
		"season_id": req.SeasonID,
		"message":   msg,
		"recrawled": false,
	}
	if seasons := h.group.Seasons(); seasons != nil && h.cfg.Crawl.CrawlMode == config.CrawlModeOnce {
		ids, err := seasons.SeasonIDs(r.Context())
		if err == nil && slices.Contains(ids, req.SeasonID) {
			failed := seasons.CrawlSeasons(h.crawlCtx, []int{req.SeasonID})
			resp["recrawled"] = failed == 0
		}
	}
	respond.WriteJSONObject(w, http.StatusOK, resp)
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC)
}
