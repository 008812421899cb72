// Package source implements the HTTP client for the COVID Tracking Project
// CSV feeds. Requests are context-aware and paced by a shared rate limiter.
// There is no retry: a failed request fails the run.
package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/derickschaefer/covidchart/internal/model"
)

const (
	defaultBaseURL = "https://covidtracking.com/api/v1/"
	userAgent      = "covidchart-cli/1.0"

	nationalPath = "us/daily.csv"
	regionalPath = "states/daily.csv"

	// maxErrorBody caps how much of a non-200 body is kept on HTTPError.
	maxErrorBody = 512
)

// AllRegions selects the all-regions feed without naming a region. Feed
// warming uses it to cache the regional document once for every region.
const AllRegions = "*"

// Fetcher retrieves the raw CSV feed for a region ("" for national data).
type Fetcher interface {
	Fetch(ctx context.Context, region string) (*model.Feed, error)
}

// HTTPError is returned when the server answers with a non-200 status.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Client is the CSV feed HTTP client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	debug      bool
}

// NewClient creates a Client for baseURL with the given timeout and request rate.
func NewClient(baseURL string, timeout time.Duration, ratePerSec float64, debug bool) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		debug:   debug,
	}
}

// Endpoint returns the feed URL for region. National data and per-region
// data come from different documents; the regional one holds every region
// and is filtered by the parser.
func (c *Client) Endpoint(region string) string {
	if region == "" {
		return c.baseURL + nationalPath
	}
	return c.baseURL + regionalPath
}

// Fetch performs exactly one GET of the feed for region.
func (c *Client) Fetch(ctx context.Context, region string) (*model.Feed, error) {
	u := c.Endpoint(region)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	return &model.Feed{URL: u, Body: body, FetchedAt: time.Now().UTC()}, nil
}

// ─── Low-level HTTP ───────────────────────────────────────────────────────────

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if c.debug {
		slog.Debug("feed request", "url", reqURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	if c.debug {
		slog.Debug("feed response",
			"status", resp.StatusCode,
			"bytes", len(body),
			"elapsed", time.Since(start).Round(time.Millisecond))
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody] + "…"
		}
		return nil, &HTTPError{URL: reqURL, StatusCode: resp.StatusCode, Body: msg}
	}
	return body, nil
}
