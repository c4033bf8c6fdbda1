// Package sportmonks provides the HTTP client for the SportMonks Soccer API v2.
//
// SportMonks uses token-based auth (query parameter), page-based pagination
// reported under meta.pagination, and nested include-based relationships.
package sportmonks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/albapepper/scoracle-crawl/internal/provider"
)

// DefaultBaseURL is the v2 soccer endpoint.
const DefaultBaseURL = "https://soccer.sportmonks.com/api/v2.0"

// maxPages bounds page-following so a misbehaving meta block cannot loop forever.
const maxPages = 200

// Options configures a Client.
type Options struct {
	BaseURL           string
	APIToken          string
	RequestsPerMinute int
	// LiveLeagueIDs restricts /livescores/now to these leagues.
	LiveLeagueIDs []int
	// Bookmaker and Market select the odds included with fixtures.
	Bookmaker int
	Market    int
	Logger    *slog.Logger
}

// Client is the HTTP client for SportMonks soccer endpoints. It implements
// provider.Source.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiToken    string
	limiter     *rate.Limiter
	liveLeagues []int
	bookmaker   int
	market      int
	logger      *slog.Logger
}

var _ provider.Source = (*Client)(nil)

// NewClient creates a SportMonks HTTP client with rate limiting.
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = 180
	}
	bookmaker, market := opts.Bookmaker, opts.Market
	if bookmaker == 0 {
		bookmaker = 150 // bwin
	}
	if market == 0 {
		market = 1 // 3-way result
	}
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     base,
		apiToken:    opts.APIToken,
		limiter:     rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		liveLeagues: opts.LiveLeagueIDs,
		bookmaker:   bookmaker,
		market:      market,
		logger:      logger,
	}
}

// response is the common SportMonks response wrapper.
type response struct {
	Data json.RawMessage `json:"data"`
	Meta struct {
		Pagination *struct {
			Total       int `json:"total"`
			Count       int `json:"count"`
			PerPage     int `json:"per_page"`
			CurrentPage int `json:"current_page"`
			TotalPages  int `json:"total_pages"`
			Links       struct {
				Next string `json:"next"`
			} `json:"links"`
		} `json:"pagination"`
	} `json:"meta"`
}

// get performs a rate-limited GET request to a SportMonks endpoint.
func (c *Client) get(ctx context.Context, path string, params url.Values) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("api_token", c.apiToken)

	u := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The request URL carries api_token.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = &url.Error{Op: ue.Op, URL: c.baseURL + path, Err: ue.Err}
		}
		return nil, fmt.Errorf("http request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("SportMonks %s: %w", path, provider.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SportMonks %s returned %d: %s", path, resp.StatusCode, truncate(body, 200))
	}

	var result response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &result, nil
}

// getInto fetches a single page and decodes its data into out.
func (c *Client) getInto(ctx context.Context, path string, params url.Values, out any) error {
	resp, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// getAll follows meta.pagination until the last page and concatenates data.
func getAll[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}

	var all []T
	for page := 1; page <= maxPages; page++ {
		q.Set("page", strconv.Itoa(page))
		resp, err := c.get(ctx, path, q)
		if err != nil {
			return nil, err
		}

		var items []T
		if err := json.Unmarshal(resp.Data, &items); err != nil {
			return nil, fmt.Errorf("decode %s page %d: %w", path, page, err)
		}
		all = append(all, items...)

		p := resp.Meta.Pagination
		if p == nil || p.Links.Next == "" || p.CurrentPage >= p.TotalPages {
			break
		}
		c.logger.Debug("Loading next page", "path", path, "page", p.CurrentPage+1, "total_pages", p.TotalPages)
	}
	return all, nil
}

func (c *Client) oddsParams(include string) url.Values {
	return url.Values{
		"include":    {include},
		"bookmakers": {strconv.Itoa(c.bookmaker)},
		"markets":    {strconv.Itoa(c.market)},
	}
}

// truncate returns a truncated string for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
