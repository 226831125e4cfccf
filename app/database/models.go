package database

import (
	"time"
)

// Event represents a stored event record
type Event struct {
	ID             string    `json:"id"` // Database UUID
	ExternalID     string    `json:"external_id"`
	SourcePlatform string    `json:"source_platform"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Venue          string    `json:"venue,omitempty"`
	City           string    `json:"city"`
	Category       string    `json:"category,omitempty"`
	Genre          string    `json:"genre,omitempty"`
	Language       string    `json:"language,omitempty"`
	Duration       string    `json:"duration,omitempty"`
	EventDate      time.Time `json:"event_date"`
	ImageURL       string    `json:"image_url,omitempty"`
	TicketURL      string    `json:"ticket_url,omitempty"`
	Price          string    `json:"price,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
