package scrapers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const maxResponseSize = 5 * 1024 * 1024

// Client is the single outbound HTTP client shared by all adapters. On top
// of per-platform queue pacing it applies a global requests-per-second cap
// so a run with many platforms stays polite in aggregate.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

func NewClient(userAgent string, outboundRPS float64) *Client {
	if outboundRPS <= 0 {
		outboundRPS = 4
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(outboundRPS), 1),
		userAgent:  userAgent,
	}
}

// Get fetches url and returns the response body. Non-2xx statuses are
// errors so the queue's retry policy can take over.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// HTTPClient exposes the underlying client for collaborators that need the
// same timeouts and transport (robots checker, URL probes).
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}
