package scrapers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/event-comb/app/browser"
	"github.com/lysyi3m/event-comb/app/event"
	"github.com/lysyi3m/event-comb/app/queue"
	"github.com/lysyi3m/event-comb/app/robots"
)

// BookMyShow renders listings client-side, so the fetch goes through the
// shared headless browser instead of the plain HTTP client.
type BookMyShow struct {
	base
	pool *browser.Pool
}

func NewBookMyShow(cfg *PlatformConfig, checker robots.CheckerInterface, requests *queue.Queue, pool *browser.Pool) *BookMyShow {
	return &BookMyShow{
		base: base{
			platform: event.PlatformBookMyShow,
			config:   cfg,
			checker:  checker,
			requests: requests,
		},
		pool: pool,
	}
}

func (s *BookMyShow) Fetch(ctx context.Context, cfg event.FetchConfig) event.PlatformFetchResult {
	listURL := fmt.Sprintf("%s/explore/events-%s", strings.TrimRight(s.config.BaseURL, "/"), s.config.CitySlug(cfg.City))

	var html string
	allowed, errMsg := s.guardedFetch(ctx, listURL, func(ctx context.Context) error {
		var err error
		html, err = s.pool.HTML(ctx, listURL, `[data-testid="event-listings"], .event-listings`)
		return err
	})
	if !allowed {
		return s.failure(ErrPolicyDisallowed)
	}
	if errMsg != "" {
		return s.failure(errMsg)
	}

	candidates, strategyName, err := s.parse(html)
	if err != nil {
		return s.failure(err.Error())
	}

	events := s.promote(candidates, cfg)
	slog.Debug("Rendered page parsed", "platform", s.platform, "strategy", strategyName, "candidates", len(candidates), "events", len(events))

	return s.success(truncate(events, cfg.Limit))
}

func (s *BookMyShow) parse(html string) ([]rawCandidate, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse rendered HTML: %w", err)
	}

	strategies := []parseStrategy{
		{"listing-cards", s.parseListingCards},
		{"style-cards", s.parseStyleCards},
	}

	for _, strategy := range strategies {
		if candidates := strategy.run(doc); len(candidates) > 0 {
			return candidates, strategy.name, nil
		}
	}

	return nil, "", fmt.Errorf("no parse strategy yielded candidates")
}

// parseListingCards reads the data-testid based layout.
func (s *BookMyShow) parseListingCards(doc *goquery.Document) []rawCandidate {
	var candidates []rawCandidate

	doc.Find(`[data-testid="event-card"]`).Each(func(i int, sel *goquery.Selection) {
		c := rawCandidate{
			title:    sel.Find(`[data-testid="event-title"], h3`).First().Text(),
			venue:    sel.Find(`[data-testid="event-venue"]`).First().Text(),
			dateText: sel.Find(`[data-testid="event-date"], time`).First().Text(),
			price:    sel.Find(`[data-testid="event-price"]`).First().Text(),
			category: sel.Find(`[data-testid="event-category"]`).First().Text(),
		}
		c.url, _ = sel.Find("a").First().Attr("href")
		c.imageURL, _ = sel.Find("img").First().Attr("src")
		candidates = append(candidates, c)
	})

	return candidates
}

// parseStyleCards is the fallback for the obfuscated class-name layout:
// anchors under the listings container with heading and sibling text.
func (s *BookMyShow) parseStyleCards(doc *goquery.Document) []rawCandidate {
	var candidates []rawCandidate

	doc.Find(`a[href*="/events/"]`).Each(func(i int, sel *goquery.Selection) {
		title := sel.Find("h3, h4").First().Text()
		if strings.TrimSpace(title) == "" {
			return
		}

		c := rawCandidate{
			title:    title,
			dateText: sel.Find("time").First().Text(),
			venue:    sel.Find("p").First().Text(),
		}
		c.url, _ = sel.Attr("href")
		c.imageURL, _ = sel.Find("img").First().Attr("src")
		candidates = append(candidates, c)
	})

	return candidates
}

func (s *BookMyShow) promote(candidates []rawCandidate, cfg event.FetchConfig) []event.StandardizedEvent {
	events := make([]event.StandardizedEvent, 0, len(candidates))

	for _, c := range candidates {
		title := strings.TrimSpace(c.title)
		if title == "" {
			continue
		}

		date, ok := parseEventDate(c.dateText)
		if !ok {
			slog.Debug("Skipping element with unparseable date", "platform", s.platform, "title", title, "date_text", c.dateText)
			continue
		}
		if !withinWindow(date, cfg) {
			continue
		}

		detailURL := absoluteURL(s.config.BaseURL, c.url)

		events = append(events, event.StandardizedEvent{
			ExternalID:     externalID(s.platform, detailURL, title, date, cfg.City),
			Title:          title,
			Description:    strings.TrimSpace(c.description),
			Venue:          strings.TrimSpace(c.venue),
			City:           cfg.City,
			Category:       strings.TrimSpace(c.category),
			EventDate:      date,
			ImageURL:       strings.TrimSpace(c.imageURL),
			TicketURL:      detailURL,
			Price:          strings.TrimSpace(c.price),
			SourcePlatform: s.platform,
			RawData: map[string]string{
				"url":       c.url,
				"date_text": c.dateText,
			},
		})

		if cfg.Limit > 0 && len(events) >= cfg.Limit {
			break
		}
	}

	return events
}
