package scrapers

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/event-comb/app/event"
	"github.com/lysyi3m/event-comb/app/queue"
	"github.com/lysyi3m/event-comb/app/robots"
)

// rawCandidate is the untrusted intermediate shape parsed out of listing
// markup. Every field is validated before promotion to StandardizedEvent.
type rawCandidate struct {
	title       string
	description string
	venue       string
	dateText    string
	url         string
	imageURL    string
	price       string
	category    string
}

// parseStrategy extracts raw candidates from a listing document. Strategies
// are tried in priority order; the first one yielding at least one
// candidate wins. Sites change markup frequently, so resilience to
// selector drift is required, not optional.
type parseStrategy struct {
	name string
	run  func(doc *goquery.Document) []rawCandidate
}

type AllEvents struct {
	base
	enricher *Enricher
}

func NewAllEvents(cfg *PlatformConfig, client *Client, checker robots.CheckerInterface, requests *queue.Queue, enricher *Enricher) *AllEvents {
	return &AllEvents{
		base: base{
			platform: event.PlatformAllEvents,
			config:   cfg,
			client:   client,
			checker:  checker,
			requests: requests,
		},
		enricher: enricher,
	}
}

func (s *AllEvents) Fetch(ctx context.Context, cfg event.FetchConfig) event.PlatformFetchResult {
	listURL := fmt.Sprintf("%s/%s/all", strings.TrimRight(s.config.BaseURL, "/"), s.config.CitySlug(cfg.City))

	var body []byte
	allowed, errMsg := s.guardedFetch(ctx, listURL, func(ctx context.Context) error {
		var err error
		body, err = s.client.Get(ctx, listURL)
		return err
	})
	if !allowed {
		return s.failure(ErrPolicyDisallowed)
	}
	if errMsg != "" {
		return s.failure(errMsg)
	}

	candidates, strategyName, err := s.parse(body)
	if err != nil {
		return s.failure(err.Error())
	}

	events := s.promote(ctx, candidates, cfg)
	slog.Debug("Listing page parsed", "platform", s.platform, "strategy", strategyName, "candidates", len(candidates), "events", len(events))

	return s.success(truncate(events, cfg.Limit))
}

func (s *AllEvents) parse(body []byte) ([]rawCandidate, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse listing HTML: %w", err)
	}

	strategies := []parseStrategy{
		{"event-cards", s.parseEventCards},
		{"microdata", s.parseMicrodata},
		{"anchor-heuristic", s.parseAnchorHeuristic},
	}

	for _, strategy := range strategies {
		if candidates := strategy.run(doc); len(candidates) > 0 {
			return candidates, strategy.name, nil
		}
	}

	return nil, "", fmt.Errorf("no parse strategy yielded candidates")
}

// parseEventCards handles the primary listing layout.
func (s *AllEvents) parseEventCards(doc *goquery.Document) []rawCandidate {
	var candidates []rawCandidate

	doc.Find("li.event-card, div.event-item").Each(func(i int, sel *goquery.Selection) {
		c := rawCandidate{
			title:       sel.Find(".title, h3").First().Text(),
			description: sel.Find(".description, .summary").First().Text(),
			venue:       sel.Find(".venue, .location .place").First().Text(),
			dateText:    firstAttr(sel.Find("time"), "datetime", sel.Find(".date, time").First().Text()),
			price:       sel.Find(".price, .ticket-price").First().Text(),
			category:    sel.Find(".category").First().Text(),
		}
		c.url, _ = sel.Find("a").First().Attr("href")
		c.imageURL = firstAttr(sel.Find("img"), "data-src", "")
		if c.imageURL == "" {
			c.imageURL, _ = sel.Find("img").First().Attr("src")
		}
		candidates = append(candidates, c)
	})

	return candidates
}

// parseMicrodata falls back to schema.org Event markup.
func (s *AllEvents) parseMicrodata(doc *goquery.Document) []rawCandidate {
	var candidates []rawCandidate

	doc.Find(`[itemtype$="schema.org/Event"]`).Each(func(i int, sel *goquery.Selection) {
		c := rawCandidate{
			title:       itemprop(sel, "name"),
			description: itemprop(sel, "description"),
			venue:       itemprop(sel, "location"),
			dateText:    firstAttr(sel.Find(`[itemprop="startDate"]`), "content", itemprop(sel, "startDate")),
			price:       itemprop(sel, "price"),
		}
		c.url, _ = sel.Find(`a[itemprop="url"], a`).First().Attr("href")
		c.imageURL, _ = sel.Find(`[itemprop="image"]`).First().Attr("src")
		candidates = append(candidates, c)
	})

	return candidates
}

// parseAnchorHeuristic is the last resort: anchors that look like event
// detail links, with whatever text surrounds them.
func (s *AllEvents) parseAnchorHeuristic(doc *goquery.Document) []rawCandidate {
	var candidates []rawCandidate

	doc.Find(`a[href*="/event/"], a[href*="/events/"]`).Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		title := strings.TrimSpace(sel.Text())
		if title == "" || href == "" {
			return
		}

		parent := sel.Closest("li, article, div")
		candidates = append(candidates, rawCandidate{
			title:    title,
			url:      href,
			dateText: parent.Find("time, .date").First().Text(),
			venue:    parent.Find(".venue, .location").First().Text(),
		})
	})

	return candidates
}

// promote maps raw candidates into StandardizedEvent values. Per-element
// failures are skipped, never fatal to the whole fetch.
func (s *AllEvents) promote(ctx context.Context, candidates []rawCandidate, cfg event.FetchConfig) []event.StandardizedEvent {
	events := make([]event.StandardizedEvent, 0, len(candidates))

	for _, c := range candidates {
		e, ok := s.promoteOne(ctx, c, cfg)
		if !ok {
			continue
		}
		if !withinWindow(e.EventDate, cfg) {
			continue
		}
		events = append(events, e)
		if cfg.Limit > 0 && len(events) >= cfg.Limit {
			break
		}
	}

	return events
}

func (s *AllEvents) promoteOne(ctx context.Context, c rawCandidate, cfg event.FetchConfig) (event.StandardizedEvent, bool) {
	title := strings.TrimSpace(c.title)
	if title == "" {
		return event.StandardizedEvent{}, false
	}

	date, ok := parseEventDate(c.dateText)
	if !ok {
		slog.Debug("Skipping element with unparseable date", "platform", s.platform, "title", title, "date_text", c.dateText)
		return event.StandardizedEvent{}, false
	}

	detailURL := absoluteURL(s.config.BaseURL, c.url)

	description := strings.TrimSpace(c.description)
	if len(description) < 10 && s.enricher != nil && detailURL != "" {
		if enriched, err := s.enricher.Describe(ctx, string(s.platform), detailURL); err == nil {
			description = enriched
		}
	}

	return event.StandardizedEvent{
		ExternalID:     externalID(s.platform, detailURL, title, date, cfg.City),
		Title:          title,
		Description:    description,
		Venue:          strings.TrimSpace(c.venue),
		City:           cfg.City,
		Category:       strings.TrimSpace(c.category),
		EventDate:      date,
		ImageURL:       absoluteURL(s.config.BaseURL, c.imageURL),
		TicketURL:      detailURL,
		Price:          strings.TrimSpace(c.price),
		SourcePlatform: s.platform,
		RawData: map[string]string{
			"url":       c.url,
			"date_text": c.dateText,
		},
	}, true
}

func itemprop(sel *goquery.Selection, prop string) string {
	return strings.TrimSpace(sel.Find(fmt.Sprintf(`[itemprop="%s"]`, prop)).First().Text())
}

func firstAttr(sel *goquery.Selection, attr, fallback string) string {
	if value, ok := sel.First().Attr(attr); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(fallback)
}

func absoluteURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(href, "/")
}

func withinWindow(date time.Time, cfg event.FetchConfig) bool {
	if cfg.StartDate != nil && date.Before(*cfg.StartDate) {
		return false
	}
	if cfg.EndDate != nil && date.After(*cfg.EndDate) {
		return false
	}
	return true
}
