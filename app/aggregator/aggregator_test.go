package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/lysyi3m/event-comb/app/event"
	"github.com/lysyi3m/event-comb/app/scrapers"
)

type stubScraper struct {
	platform event.Platform
	result   event.PlatformFetchResult
	panics   bool
}

func (s *stubScraper) Platform() event.Platform {
	return s.platform
}

func (s *stubScraper) Fetch(ctx context.Context, cfg event.FetchConfig) event.PlatformFetchResult {
	if s.panics {
		panic("adapter exploded")
	}
	return s.result
}

type recordingSink struct {
	events []event.StandardizedEvent
}

func (r *recordingSink) UpsertEvent(ctx context.Context, e event.StandardizedEvent) error {
	r.events = append(r.events, e)
	return nil
}

func validEvent(id, title string) event.StandardizedEvent {
	return event.StandardizedEvent{
		ExternalID:     id,
		Title:          title,
		Description:    "An evening of live music at the waterfront.",
		Venue:          "Blue Note",
		City:           "Mumbai",
		EventDate:      time.Now().Add(48 * time.Hour),
		Price:          "₹499",
		SourcePlatform: event.PlatformAllEvents,
	}
}

func successResult(platform event.Platform, events ...event.StandardizedEvent) event.PlatformFetchResult {
	return event.PlatformFetchResult{
		Platform:  platform,
		Success:   true,
		Events:    events,
		FetchedAt: time.Now(),
	}
}

func newAggregator(sink EventSink, adapters ...scrapers.Scraper) *Aggregator {
	return New(adapters, event.NewValidator(), event.NewDeduplicator(), sink)
}

func TestRunMergesSuccessAndFailure(t *testing.T) {
	a := newAggregator(nil,
		&stubScraper{
			platform: event.PlatformAllEvents,
			result: successResult(event.PlatformAllEvents,
				validEvent("allevents-1", "Live Music Night"),
				validEvent("allevents-2", "Pottery Workshop")),
		},
		&stubScraper{
			platform: event.PlatformInsider,
			result: event.PlatformFetchResult{
				Platform: event.PlatformInsider,
				Success:  false,
				Error:    "HTTP error: 503",
			},
		},
	)

	result := a.Run(context.Background(), event.FetchConfig{City: "Mumbai", Limit: 10})

	if !result.Success {
		t.Error("Expected success when one platform yields events")
	}
	if result.TotalEvents != 2 {
		t.Errorf("Expected 2 events, got %d", result.TotalEvents)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Expected exactly 1 error entry, got %d: %v", len(result.Errors), result.Errors)
	}
	if result.Errors[0] != "insider: HTTP error: 503" {
		t.Errorf("Expected the insider failure referenced, got %q", result.Errors[0])
	}
	if result.ByPlatform["allevents"] != 2 {
		t.Errorf("Expected 2 events counted for allevents, got %d", result.ByPlatform["allevents"])
	}
	if result.RunID == "" {
		t.Error("Expected a run ID")
	}
}

func TestRunAllPlatformsFailed(t *testing.T) {
	a := newAggregator(nil,
		&stubScraper{
			platform: event.PlatformAllEvents,
			result:   event.PlatformFetchResult{Platform: event.PlatformAllEvents, Success: false, Error: "timeout"},
		},
		&stubScraper{
			platform: event.PlatformInsider,
			result:   event.PlatformFetchResult{Platform: event.PlatformInsider, Success: false, Error: "blocked"},
		},
	)

	result := a.Run(context.Background(), event.FetchConfig{City: "Mumbai", Limit: 10})

	if result.Success {
		t.Error("Expected failure when no platform yields events")
	}
	if result.TotalEvents != 0 {
		t.Errorf("Expected 0 events, got %d", result.TotalEvents)
	}
	if len(result.Errors) != 2 {
		t.Errorf("Expected every platform's failure listed, got %v", result.Errors)
	}
}

func TestRunRecoversAdapterPanic(t *testing.T) {
	a := newAggregator(nil,
		&stubScraper{platform: event.PlatformAllEvents, panics: true},
		&stubScraper{
			platform: event.PlatformInsider,
			result:   successResult(event.PlatformInsider, validEventFor(event.PlatformInsider, "insider-1", "Comedy Night")),
		},
	)

	result := a.Run(context.Background(), event.FetchConfig{City: "Mumbai", Limit: 10})

	if !result.Success {
		t.Error("Expected the surviving platform's events to be kept")
	}
	if result.TotalEvents != 1 {
		t.Errorf("Expected 1 event, got %d", result.TotalEvents)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Expected the panic captured as a platform error, got %v", result.Errors)
	}
}

func TestRunDropsInvalidCandidates(t *testing.T) {
	invalid := validEvent("allevents-3", "DJ") // title too short

	a := newAggregator(nil,
		&stubScraper{
			platform: event.PlatformAllEvents,
			result:   successResult(event.PlatformAllEvents, validEvent("allevents-1", "Live Music Night"), invalid),
		},
	)

	result := a.Run(context.Background(), event.FetchConfig{City: "Mumbai", Limit: 10})

	if result.TotalEvents != 1 {
		t.Errorf("Expected the invalid candidate dropped, got %d events", result.TotalEvents)
	}
}

func TestRunDeduplicatesAcrossPlatforms(t *testing.T) {
	base := time.Now().Add(48 * time.Hour)

	fromAllEvents := validEvent("allevents-1", "Live Music Night")
	fromAllEvents.EventDate = base

	fromInsider := validEventFor(event.PlatformInsider, "insider-9", "live music night!")
	fromInsider.EventDate = base.Add(10 * time.Minute)
	fromInsider.ImageURL = "https://cdn.example.com/poster.jpg"
	fromInsider.TicketURL = "https://insider.example.com/event/live-music-night"

	sink := &recordingSink{}
	a := newAggregator(sink,
		&stubScraper{platform: event.PlatformAllEvents, result: successResult(event.PlatformAllEvents, fromAllEvents)},
		&stubScraper{platform: event.PlatformInsider, result: successResult(event.PlatformInsider, fromInsider)},
	)

	result := a.Run(context.Background(), event.FetchConfig{City: "Mumbai", Limit: 10})

	if result.TotalEvents != 1 {
		t.Fatalf("Expected cross-platform duplicate collapsed to 1, got %d", result.TotalEvents)
	}
	if result.AllEvents[0].ExternalID != "insider-9" {
		t.Errorf("Expected the more complete record kept, got %s", result.AllEvents[0].ExternalID)
	}
	if len(sink.events) != 1 {
		t.Errorf("Expected the deduplicated list handed to the sink, got %d", len(sink.events))
	}
}

func validEventFor(platform event.Platform, id, title string) event.StandardizedEvent {
	e := validEvent(id, title)
	e.SourcePlatform = platform
	return e
}
