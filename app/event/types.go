package event

import (
	"time"
)

// Platform identifies an external event source.
type Platform string

const (
	PlatformBookMyShow Platform = "bookmyshow"
	PlatformInsider    Platform = "insider"
	PlatformAllEvents  Platform = "allevents"
	PlatformFeedCal    Platform = "feedcal"
)

// KnownPlatforms is the allow-list of accepted source platforms.
var KnownPlatforms = map[Platform]bool{
	PlatformBookMyShow: true,
	PlatformInsider:    true,
	PlatformAllEvents:  true,
	PlatformFeedCal:    true,
}

// StandardizedEvent is the common schema every source is normalized into.
// ExternalID is unique within SourcePlatform; cross-platform duplicates are
// resolved by fuzzy matching, not by identity.
type StandardizedEvent struct {
	ExternalID     string            `json:"external_id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Venue          string            `json:"venue"`
	City           string            `json:"city"`
	Category       string            `json:"category,omitempty"`
	Genre          string            `json:"genre,omitempty"`
	Language       string            `json:"language,omitempty"`
	Duration       string            `json:"duration,omitempty"`
	EventDate      time.Time         `json:"event_date"`
	ImageURL       string            `json:"image_url,omitempty"`
	TicketURL      string            `json:"ticket_url,omitempty"`
	Price          string            `json:"price"`
	SourcePlatform Platform          `json:"source_platform"`
	RawData        map[string]string `json:"raw_data,omitempty"` // original scraped fields, debugging only
}

// FetchConfig is the per-call input to a scraper adapter. FullValidation
// is ignored by adapters; the aggregator reads it to decide whether URL
// probes run on the merged pool.
type FetchConfig struct {
	City           string
	Limit          int
	StartDate      *time.Time
	EndDate        *time.Time
	FullValidation bool
}

// PlatformFetchResult is the terminal outcome of one adapter invocation.
// Success=false never means a panic escaped; failures are captured as data.
type PlatformFetchResult struct {
	Platform  Platform            `json:"platform"`
	Success   bool                `json:"success"`
	Events    []StandardizedEvent `json:"events"`
	Error     string              `json:"error,omitempty"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// AggregatorResult is the output of one aggregation run.
type AggregatorResult struct {
	RunID           string                `json:"run_id"`
	Success         bool                  `json:"success"`
	TotalEvents     int                   `json:"total_events"`
	PlatformResults []PlatformFetchResult `json:"platform_results"`
	AllEvents       []StandardizedEvent   `json:"all_events"`
	Errors          []string              `json:"errors"`
	ByPlatform      map[string]int        `json:"by_platform"`
	ByCategory      map[string]int        `json:"by_category"`
	ByCity          map[string]int        `json:"by_city"`
}

// ValidationResult is created per candidate and consumed immediately.
type ValidationResult struct {
	IsValid   bool
	Errors    []string
	Warnings  []string
	Sanitized StandardizedEvent
}

// DuplicateGroup is an ephemeral clustering of two or more events judged to
// describe the same real-world event. It only exists during a dedup pass.
type DuplicateGroup struct {
	Members []StandardizedEvent
}
