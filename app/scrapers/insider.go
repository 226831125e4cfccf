package scrapers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/event-comb/app/event"
	"github.com/lysyi3m/event-comb/app/queue"
	"github.com/lysyi3m/event-comb/app/robots"
)

type Insider struct {
	base
}

func NewInsider(cfg *PlatformConfig, client *Client, checker robots.CheckerInterface, requests *queue.Queue) *Insider {
	return &Insider{
		base: base{
			platform: event.PlatformInsider,
			config:   cfg,
			client:   client,
			checker:  checker,
			requests: requests,
		},
	}
}

// insiderEvent mirrors the fields we rely on in the embedded page state.
// The payload is untrusted and changes without notice, so every field is
// optional and checked before use.
type insiderEvent struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Venue struct {
		Name string `json:"name"`
		City string `json:"city"`
	} `json:"venue"`
	StartUTCTimestamp int64  `json:"start_utc_timestamp"`
	StartDate         string `json:"start_date"`
	PriceDisplay      string `json:"price_display_string"`
	CoverImage        string `json:"horizontal_cover_image"`
	Category          struct {
		Name string `json:"name"`
	} `json:"category"`
	Language string `json:"language"`
	Duration string `json:"duration"`
}

type insiderPageState struct {
	Props struct {
		PageProps struct {
			Events []insiderEvent `json:"events"`
			List   struct {
				Events []insiderEvent `json:"events"`
			} `json:"list"`
		} `json:"pageProps"`
	} `json:"props"`
}

func (s *Insider) Fetch(ctx context.Context, cfg event.FetchConfig) event.PlatformFetchResult {
	listURL := fmt.Sprintf("%s/all-events-in-%s", strings.TrimRight(s.config.BaseURL, "/"), s.config.CitySlug(cfg.City))

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

	raw, strategyName, err := s.parse(body)
	if err != nil {
		return s.failure(err.Error())
	}

	events := s.promote(raw, cfg)
	slog.Debug("Page state parsed", "platform", s.platform, "strategy", strategyName, "candidates", len(raw), "events", len(events))

	return s.success(truncate(events, cfg.Limit))
}

func (s *Insider) parse(body []byte) ([]insiderEvent, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse page HTML: %w", err)
	}

	if events := s.parseNextData(doc); len(events) > 0 {
		return events, "next-data", nil
	}
	if events := s.parseLinkedData(doc); len(events) > 0 {
		return events, "linked-data", nil
	}

	return nil, "", fmt.Errorf("no embedded event data found")
}

// parseNextData extracts the framework page state embedded as JSON.
func (s *Insider) parseNextData(doc *goquery.Document) []insiderEvent {
	payload := doc.Find(`script#__NEXT_DATA__`).First().Text()
	if payload == "" {
		return nil
	}

	var state insiderPageState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		slog.Debug("Failed to decode page state", "platform", s.platform, "error", err)
		return nil
	}

	if len(state.Props.PageProps.Events) > 0 {
		return state.Props.PageProps.Events
	}
	return state.Props.PageProps.List.Events
}

// parseLinkedData falls back to schema.org JSON-LD blocks.
func (s *Insider) parseLinkedData(doc *goquery.Document) []insiderEvent {
	var events []insiderEvent

	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, sel *goquery.Selection) {
		var entries []struct {
			Type      string `json:"@type"`
			Name      string `json:"name"`
			StartDate string `json:"startDate"`
			URL       string `json:"url"`
			Image     string `json:"image"`
			Location  struct {
				Name    string `json:"name"`
				Address struct {
					AddressLocality string `json:"addressLocality"`
				} `json:"address"`
			} `json:"location"`
			Offers struct {
				Price string `json:"price"`
			} `json:"offers"`
		}

		payload := []byte(sel.Text())
		if err := json.Unmarshal(payload, &entries); err != nil {
			// Single-object blocks are common too.
			entries = entries[:0]
			var single json.RawMessage
			if json.Unmarshal(payload, &single) == nil && len(single) > 0 && single[0] == '{' {
				payload = append(append([]byte{'['}, single...), ']')
				if err := json.Unmarshal(payload, &entries); err != nil {
					return
				}
			}
		}

		for _, entry := range entries {
			if entry.Type != "Event" {
				continue
			}
			events = append(events, insiderEvent{
				Name:      entry.Name,
				Slug:      entry.URL,
				StartDate: entry.StartDate,
				Venue: struct {
					Name string `json:"name"`
					City string `json:"city"`
				}{Name: entry.Location.Name, City: entry.Location.Address.AddressLocality},
				PriceDisplay: entry.Offers.Price,
				CoverImage:   entry.Image,
			})
		}
	})

	return events
}

// promote validates each raw entry field by field; malformed entries are
// skipped without failing the fetch.
func (s *Insider) promote(raw []insiderEvent, cfg event.FetchConfig) []event.StandardizedEvent {
	events := make([]event.StandardizedEvent, 0, len(raw))

	for _, r := range raw {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}

		var date time.Time
		switch {
		case r.StartUTCTimestamp > 0:
			date = time.Unix(r.StartUTCTimestamp, 0)
		default:
			parsed, ok := parseEventDate(r.StartDate)
			if !ok {
				slog.Debug("Skipping entry with unparseable date", "platform", s.platform, "name", r.Name)
				continue
			}
			date = parsed
		}

		if !withinWindow(date, cfg) {
			continue
		}

		detailURL := absoluteURL(s.config.BaseURL, r.Slug)
		city := r.Venue.City
		if city == "" {
			city = cfg.City
		}

		events = append(events, event.StandardizedEvent{
			ExternalID:     externalID(s.platform, detailURL, r.Name, date, city),
			Title:          r.Name,
			Description:    r.Description,
			Venue:          r.Venue.Name,
			City:           city,
			Category:       r.Category.Name,
			Language:       r.Language,
			Duration:       r.Duration,
			EventDate:      date,
			ImageURL:       r.CoverImage,
			TicketURL:      detailURL,
			Price:          r.PriceDisplay,
			SourcePlatform: s.platform,
			RawData: map[string]string{
				"slug": r.Slug,
			},
		})

		if cfg.Limit > 0 && len(events) >= cfg.Limit {
			break
		}
	}

	return events
}
