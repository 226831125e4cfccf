// Package scrapers contains the per-platform adapters that fetch and parse
// raw listings from external sources into the common event schema. Adapters
// never fail hard: every internal error is captured in the returned
// PlatformFetchResult.
package scrapers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/event-comb/app/event"
	"github.com/lysyi3m/event-comb/app/metrics"
	"github.com/lysyi3m/event-comb/app/queue"
	"github.com/lysyi3m/event-comb/app/robots"
)

// ErrPolicyDisallowed is the fixed message reported when a platform's
// robots policy rejects the target URL. No network fetch is made.
const ErrPolicyDisallowed = "scraping disallowed by robots policy"

// Scraper is the adapter contract. Fetch never panics and never returns an
// error; failures surface as Success=false in the result.
type Scraper interface {
	Platform() event.Platform
	Fetch(ctx context.Context, cfg event.FetchConfig) event.PlatformFetchResult
}

// base carries the collaborators every adapter shares.
type base struct {
	platform event.Platform
	config   *PlatformConfig
	client   *Client
	checker  robots.CheckerInterface
	requests *queue.Queue
}

func (b *base) Platform() event.Platform {
	return b.platform
}

func (b *base) failure(err string) event.PlatformFetchResult {
	metrics.FetchFailuresTotal.WithLabelValues(string(b.platform)).Inc()
	return event.PlatformFetchResult{
		Platform:  b.platform,
		Success:   false,
		Events:    []event.StandardizedEvent{},
		Error:     err,
		FetchedAt: time.Now(),
	}
}

func (b *base) success(events []event.StandardizedEvent) event.PlatformFetchResult {
	metrics.EventsScrapedTotal.WithLabelValues(string(b.platform)).Add(float64(len(events)))
	return event.PlatformFetchResult{
		Platform:  b.platform,
		Success:   true,
		Events:    events,
		FetchedAt: time.Now(),
	}
}

// guardedFetch runs the robots check, then submits fn through the
// platform's rate-limited queue. Returns (allowed=false, err="") only for
// policy rejections.
func (b *base) guardedFetch(ctx context.Context, targetURL string, fn queue.RequestFunc) (allowed bool, errMsg string) {
	start := time.Now()
	metrics.FetchAttemptsTotal.WithLabelValues(string(b.platform)).Inc()

	ok, err := b.checker.CheckAccess(ctx, targetURL)
	if err != nil {
		return true, fmt.Sprintf("robots check failed: %s", err)
	}
	if !ok {
		slog.Warn("Fetch disallowed by robots policy", "platform", b.platform, "url", targetURL)
		return false, ""
	}

	if err := b.requests.Submit(ctx, string(b.platform), fn); err != nil {
		return true, err.Error()
	}

	metrics.FetchDurationSeconds.WithLabelValues(string(b.platform)).Observe(time.Since(start).Seconds())
	return true, ""
}

// externalID derives a deterministic identifier from the listing's
// identity fields so re-scraping the same listing yields the same id.
func externalID(platform event.Platform, url, title string, date time.Time, city string) string {
	content := fmt.Sprintf("%s|%s|%s|%s|%s",
		platform,
		url,
		strings.ToLower(strings.TrimSpace(title)),
		date.UTC().Format(time.RFC3339),
		strings.ToLower(strings.TrimSpace(city)))

	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%s-%s", platform, hex.EncodeToString(hash[:])[:16])
}

// truncate caps the candidate list at the configured limit.
func truncate(events []event.StandardizedEvent, limit int) []event.StandardizedEvent {
	if limit > 0 && len(events) > limit {
		return events[:limit]
	}
	return events
}

// eventDateFormats are tried in order when parsing listing date text.
var eventDateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
	"Monday, January 2, 2006",
}

// parseEventDate parses untrusted date text from a listing. Empty result
// means the element should be skipped.
func parseEventDate(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	for _, format := range eventDateFormats {
		if parsed, err := time.ParseInLocation(format, text, time.Local); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
