package database

import (
	"context"

	"github.com/lysyi3m/event-comb/app/event"
)

type EventRepository interface {
	UpsertEvent(ctx context.Context, e event.StandardizedEvent) error
	GetEventCount() (int, error)
	GetEventCountByPlatform() (map[string]int, error)
	GetUpcomingEvents(city string, limit int) ([]Event, error)
}
