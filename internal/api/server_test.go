package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-crawl/internal/api/handler"
	"github.com/albapepper/scoracle-crawl/internal/cache"
	"github.com/albapepper/scoracle-crawl/internal/config"
	"github.com/albapepper/scoracle-crawl/internal/crawler"
	"github.com/albapepper/scoracle-crawl/internal/gateway"
	"github.com/albapepper/scoracle-crawl/internal/provider"
	"github.com/albapepper/scoracle-crawl/internal/provider/mockdb"
	"github.com/albapepper/scoracle-crawl/internal/render"
)

const seasonID = 17361

var kickoff = time.Date(2021, 5, 22, 13, 30, 0, 0, time.UTC)

type failingDB struct{}

func (failingDB) HealthCheck(ctx context.Context) error { return errors.New("connection refused") }

func seedMock(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	w := mockdb.NewWriter(fs, "/mock", nil)

	f := provider.Fixture{ID: 16475287, LeagueID: 82, SeasonID: seasonID, LocalTeamID: 503, VisitorTeamID: 683}
	f.SetStartingAt(kickoff)
	f.Time.Status = "FT"
	f.Scores.LocalTeamScore = 5
	f.Scores.VisitorTeamScore = 2
	season := provider.Season{
		ID: seasonID, Name: "2020/2021", LeagueID: 82,
		League:   &provider.Include[provider.League]{Data: provider.League{ID: 82, Name: "Bundesliga", CountryID: 11}},
		Fixtures: &provider.Include[[]provider.Fixture]{Data: []provider.Fixture{f}},
	}
	teams := []provider.Team{{ID: 503, Name: "FC Bayern München"}, {ID: 683, Name: "FC Augsburg"}}
	_, err := w.WriteSeason(season, teams)
	require.NoError(t, err)
	return fs
}

func newServer(t *testing.T, mock bool, db handler.HealthChecker) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		CORSAllowOrigins: []string{"http://localhost:4200"},
		Crawl: config.CrawlConfig{
			MockAPI:         mock,
			SeasonMode:      config.SeasonModeManual,
			Seasons:         []int{seasonID},
			CrawlMode:       config.CrawlModeOnce,
			RefreshInterval: time.Hour,
			Crawlers:        []string{config.CrawlerSeasons, config.CrawlerLive},
			ScannerVersion:  "test",
		},
	}

	r, err := render.New()
	require.NoError(t, err)
	gw := gateway.New(nil, r, cache.New(nil, "test"), gateway.Options{})
	src := mockdb.New(seedMock(t), "/mock", nil)
	src.SetClock(func() time.Time { return kickoff.Add(-time.Hour) })

	group := crawler.NewGroup(crawler.Deps{
		Source:  src,
		Gateway: gw,
		Config:  cfg.Crawl,
	}, nil)

	deps := handler.Deps{
		DB:      db,
		Group:   group,
		Gateway: gw,
		Source:  src,
		Config:  cfg,
	}
	if mock {
		deps.SetBacker = src
	}
	srv := httptest.NewServer(NewRouter(deps))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealth(t *testing.T) {
	srv := newServer(t, true, nil)

	status, body := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	status, body = do(t, srv, http.MethodGet, "/health/db", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "disabled", body["database"])

	status, body = do(t, newServer(t, true, failingDB{}), http.MethodGet, "/health/db", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "disconnected", body["database"])
}

func TestRootAndDocs(t *testing.T) {
	srv := newServer(t, true, nil)

	status, body := do(t, srv, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "mock", body["source"])
	assert.Equal(t, "once", body["crawl_mode"])

	status, body = do(t, srv, http.MethodGet, "/docs/doc.json", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "3.0.3", body["openapi"])
}

func TestTimingHeader(t *testing.T) {
	srv := newServer(t, true, nil)
	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Process-Time"))
}

func TestCrawlerControl(t *testing.T) {
	srv := newServer(t, true, nil)

	status, body := do(t, srv, http.MethodGet, "/api/v1/crawlers", "")
	require.Equal(t, http.StatusOK, status)
	crawlers, _ := body["crawlers"].([]any)
	require.Len(t, crawlers, 2)
	first, _ := crawlers[0].(map[string]any)
	assert.Equal(t, "seasons", first["name"])
	assert.Equal(t, "idle", first["state"])

	status, body = do(t, srv, http.MethodPost, "/api/v1/crawlers/odds/run", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "UNKNOWN_CRAWLER", errorCode(body))

	status, body = do(t, srv, http.MethodPost, "/api/v1/crawlers/live/stop", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "stopped", body["state"])

	status, body = do(t, srv, http.MethodPost, "/api/v1/crawlers/seasons/run", "")
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "triggered", body["status"])
}

func TestSchedule(t *testing.T) {
	srv := newServer(t, true, nil)

	status, body := do(t, srv, http.MethodGet, "/api/v1/schedule", "")
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, body["schedule"])
	timeouts, _ := body["timeouts"].(map[string]any)
	assert.EqualValues(t, 10000, timeouts["LIVE"])

	status, body = do(t, srv, http.MethodPut, "/api/v1/schedule/timeouts", `{"LONG_AFTER": 0}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_TIMEOUTS", errorCode(body))

	status, body = do(t, srv, http.MethodPut, "/api/v1/schedule/timeouts", `{"LONG_AFTER": 300000, "DEFAULT": 20000}`)
	require.Equal(t, http.StatusOK, status)
	action, _ := body["action"].(map[string]any)
	assert.Equal(t, "LONG_AFTER", action["mode"])
	assert.EqualValues(t, 300000, action["timeout_ms"])
	timeouts, _ = body["timeouts"].(map[string]any)
	assert.EqualValues(t, 20000, timeouts["DEFAULT"])
}

func TestGatewayStats(t *testing.T) {
	srv := newServer(t, true, nil)
	status, body := do(t, srv, http.MethodGet, "/api/v1/gateway/stats", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "saved=0 unchanged=0 abandoned=0 retries=0", body["summary"])
}

func TestMockSeason(t *testing.T) {
	srv := newServer(t, true, nil)

	status, body := do(t, srv, http.MethodGet, "/api/v1/mock/seasons/17361", "")
	require.Equal(t, http.StatusOK, status)
	fixtures, _ := body["fixtures"].([]any)
	require.Len(t, fixtures, 1)
	f, _ := fixtures[0].(map[string]any)
	assert.Equal(t, "FC Bayern München", f["local_team"])
	assert.Equal(t, "FT", f["status"])
	assert.NotContains(t, body, "set_back_to")

	status, body = do(t, srv, http.MethodGet, "/api/v1/mock/seasons/1", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "SEASON_NOT_FOUND", errorCode(body))

	status, _ = do(t, srv, http.MethodGet, "/api/v1/mock/seasons/abc", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSetBackRecrawlsInOnceMode(t *testing.T) {
	srv := newServer(t, true, nil)

	status, body := do(t, srv, http.MethodPost, "/api/v1/mock/set-back",
		`{"season_id": 17361, "date": "2021-05-22 13:30:00", "include_game": true}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["recrawled"])

	status, body = do(t, srv, http.MethodGet, "/api/v1/mock/seasons/17361", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "2021-05-22T13:29:00Z", body["set_back_to"])
	fixtures, _ := body["fixtures"].([]any)
	f, _ := fixtures[0].(map[string]any)
	assert.Equal(t, "NS", f["status"])
	assert.EqualValues(t, 0, f["local_team_score"])
}

func TestSetBackErrors(t *testing.T) {
	srv := newServer(t, true, nil)

	status, body := do(t, srv, http.MethodPost, "/api/v1/mock/set-back", `{"season_id": 1, "date": "2021-05-22T13:30:00Z"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "SEASON_NOT_FOUND", errorCode(body))

	status, body = do(t, srv, http.MethodPost, "/api/v1/mock/set-back", `{"season_id": 17361, "date": "yesterday"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_DATE", errorCode(body))

	live := newServer(t, false, nil)
	status, body = do(t, live, http.MethodPost, "/api/v1/mock/set-back", `{"season_id": 17361, "date": "2021-05-22T13:30:00Z"}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "MOCK_DISABLED", errorCode(body))
}
