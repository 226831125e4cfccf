// Package robots gates every outbound fetch against the source site's
// published crawling rules.
package robots

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	policyTTL    = time.Hour
	fetchTimeout = 10 * time.Second
)

// CheckerInterface is the collaborator contract queried before every fetch.
type CheckerInterface interface {
	CheckAccess(ctx context.Context, rawURL string) (bool, error)
}

var _ CheckerInterface = (*Checker)(nil)

type cachedPolicy struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

type Checker struct {
	httpClient *http.Client
	userAgent  string

	mu    sync.RWMutex
	cache map[string]cachedPolicy
}

func NewChecker(httpClient *http.Client, userAgent string) *Checker {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: fetchTimeout}
	}
	return &Checker{
		httpClient: httpClient,
		userAgent:  userAgent,
		cache:      make(map[string]cachedPolicy),
	}
}

// CheckAccess reports whether the configured user agent may fetch rawURL.
// Policies are cached per host. A missing robots.txt (404) allows access;
// 401/403 and server errors disallow it, per crawling convention.
func (c *Checker) CheckAccess(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return false, fmt.Errorf("URL must be absolute: %s", rawURL)
	}

	data, err := c.policy(ctx, u.Scheme, u.Host)
	if err != nil {
		return false, err
	}

	return data.TestAgent(u.Path, c.userAgent), nil
}

func (c *Checker) policy(ctx context.Context, scheme, host string) (*robotstxt.RobotsData, error) {
	c.mu.RLock()
	cached, ok := c.cache[host]
	c.mu.RUnlock()
	if ok && time.Since(cached.fetchedAt) < policyTTL {
		return cached.data, nil
	}

	data, err := c.fetchPolicy(ctx, scheme, host)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[host] = cachedPolicy{data: data, fetchedAt: time.Now()}
	c.mu.Unlock()

	return data, nil
}

func (c *Checker) fetchPolicy(ctx context.Context, scheme, host string) (*robotstxt.RobotsData, error) {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read robots.txt: %w", err)
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
	}

	slog.Debug("Robots policy fetched", "host", host, "status", resp.StatusCode)

	return data, nil
}
