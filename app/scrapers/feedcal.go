package scrapers

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/event-comb/app/event"
	"github.com/lysyi3m/event-comb/app/queue"
	"github.com/lysyi3m/event-comb/app/robots"
)

// FeedCal ingests municipal and venue event calendars published as RSS or
// Atom feeds. The calmest of the sources: structured data, no markup
// guessing.
type FeedCal struct {
	base
	parser *gofeed.Parser
}

func NewFeedCal(cfg *PlatformConfig, client *Client, checker robots.CheckerInterface, requests *queue.Queue) *FeedCal {
	return &FeedCal{
		base: base{
			platform: event.PlatformFeedCal,
			config:   cfg,
			client:   client,
			checker:  checker,
			requests: requests,
		},
		parser: gofeed.NewParser(),
	}
}

func (s *FeedCal) Fetch(ctx context.Context, cfg event.FetchConfig) event.PlatformFetchResult {
	feedURL := fmt.Sprintf("%s/%s/events.xml", strings.TrimRight(s.config.BaseURL, "/"), s.config.CitySlug(cfg.City))

	var body []byte
	allowed, errMsg := s.guardedFetch(ctx, feedURL, func(ctx context.Context) error {
		var err error
		body, err = s.client.Get(ctx, feedURL)
		return err
	})
	if !allowed {
		return s.failure(ErrPolicyDisallowed)
	}
	if errMsg != "" {
		return s.failure(errMsg)
	}

	feed, err := s.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return s.failure(fmt.Sprintf("failed to parse feed: %s", err))
	}

	events := s.promote(feed, cfg)
	slog.Debug("Calendar feed parsed", "platform", s.platform, "feed", feed.Title, "items", len(feed.Items), "events", len(events))

	return s.success(truncate(events, cfg.Limit))
}

func (s *FeedCal) promote(feed *gofeed.Feed, cfg event.FetchConfig) []event.StandardizedEvent {
	events := make([]event.StandardizedEvent, 0, len(feed.Items))

	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		e, ok := s.promoteItem(feed, item, cfg)
		if !ok {
			continue
		}
		events = append(events, e)

		if cfg.Limit > 0 && len(events) >= cfg.Limit {
			break
		}
	}

	return events
}

func (s *FeedCal) promoteItem(feed *gofeed.Feed, item *gofeed.Item, cfg event.FetchConfig) (event.StandardizedEvent, bool) {
	title, venue := splitTitleVenue(item.Title)
	if title == "" {
		return event.StandardizedEvent{}, false
	}
	if venue == "" {
		venue = feed.Title
	}

	// Atom calendars often carry only an updated timestamp.
	parsed := item.PublishedParsed
	if parsed == nil {
		parsed = item.UpdatedParsed
	}
	if parsed == nil {
		slog.Debug("Skipping feed item without a date", "platform", s.platform, "title", title)
		return event.StandardizedEvent{}, false
	}
	date := *parsed
	if !withinWindow(date, cfg) {
		return event.StandardizedEvent{}, false
	}

	category := ""
	if len(item.Categories) > 0 {
		category = item.Categories[0]
	}

	imageURL := ""
	if item.Image != nil {
		imageURL = item.Image.URL
	}

	return event.StandardizedEvent{
		ExternalID:     externalID(s.platform, item.Link, title, date, cfg.City),
		Title:          title,
		Description:    item.Description,
		Venue:          venue,
		City:           cfg.City,
		Category:       category,
		EventDate:      date,
		ImageURL:       imageURL,
		TicketURL:      item.Link,
		SourcePlatform: s.platform,
		RawData: map[string]string{
			"guid": item.GUID,
		},
	}, true
}

// splitTitleVenue handles the common "<event> @ <venue>" calendar
// convention.
func splitTitleVenue(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if before, after, found := strings.Cut(raw, " @ "); found {
		return strings.TrimSpace(before), strings.TrimSpace(after)
	}
	return raw, ""
}
