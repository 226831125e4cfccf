package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lysyi3m/event-comb/app/event"
)

// SQLEventRepository handles database operations for events
type SQLEventRepository struct {
	db *DB
}

var _ EventRepository = (*SQLEventRepository)(nil)

// NewEventRepository creates a new event repository
func NewEventRepository(db *DB) *SQLEventRepository {
	return &SQLEventRepository{db: db}
}

// UpsertEvent inserts an event or refreshes an existing row keyed by
// (source_platform, external_id). The database UUID survives updates.
func (r *SQLEventRepository) UpsertEvent(ctx context.Context, e event.StandardizedEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (
			id, external_id, source_platform, title, description, venue,
			city, category, genre, language, duration, event_date,
			image_url, ticket_url, price
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_platform, external_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			venue = excluded.venue,
			city = excluded.city,
			category = excluded.category,
			genre = excluded.genre,
			language = excluded.language,
			duration = excluded.duration,
			event_date = excluded.event_date,
			image_url = excluded.image_url,
			ticket_url = excluded.ticket_url,
			price = excluded.price,
			updated_at = CURRENT_TIMESTAMP
	`, uuid.NewString(), e.ExternalID, string(e.SourcePlatform), e.Title, e.Description, e.Venue,
		e.City, e.Category, e.Genre, e.Language, e.Duration, e.EventDate.UTC(),
		e.ImageURL, e.TicketURL, e.Price)

	if err != nil {
		return fmt.Errorf("failed to upsert event: %w", err)
	}

	return nil
}

// GetEventCount returns the total number of stored events
func (r *SQLEventRepository) GetEventCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get event count: %w", err)
	}
	return count, nil
}

// GetEventCountByPlatform returns stored event counts keyed by platform
func (r *SQLEventRepository) GetEventCountByPlatform() (map[string]int, error) {
	rows, err := r.db.Query(`
		SELECT source_platform, COUNT(*)
		FROM events
		GROUP BY source_platform
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get event counts by platform: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var platform string
		var count int
		if err := rows.Scan(&platform, &count); err != nil {
			return nil, fmt.Errorf("failed to scan platform count row: %w", err)
		}
		counts[platform] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating platform count rows: %w", err)
	}

	return counts, nil
}

// GetUpcomingEvents returns future events for a city ordered by date.
// An empty city matches all cities.
func (r *SQLEventRepository) GetUpcomingEvents(city string, limit int) ([]Event, error) {
	rows, err := r.db.Query(`
		SELECT id, external_id, source_platform, title, description, venue,
		       city, category, genre, language, duration, event_date,
		       image_url, ticket_url, price, created_at, updated_at
		FROM events
		WHERE event_date >= CURRENT_TIMESTAMP
		  AND (? = '' OR city = ?)
		ORDER BY event_date ASC
		LIMIT ?
	`, city, city, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get upcoming events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		err := rows.Scan(
			&e.ID, &e.ExternalID, &e.SourcePlatform, &e.Title, &e.Description, &e.Venue,
			&e.City, &e.Category, &e.Genre, &e.Language, &e.Duration, &e.EventDate,
			&e.ImageURL, &e.TicketURL, &e.Price, &e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}
