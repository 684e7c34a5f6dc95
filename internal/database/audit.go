package database

import (
	"context"
	"fmt"
	"time"

	"tourbook/internal/models"
)

func (db *DB) InsertBookingEvent(ctx context.Context, event *models.BookingEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.Payload == "" {
		event.Payload = "{}"
	}
	query := `INSERT INTO booking_events (booking_id, event_type, status, actor_id, actor_role, payload, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		event.BookingID, event.EventType, event.Status, event.ActorID, event.ActorRole, event.Payload,
		event.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking event: %w", err)
	}
	id, err := result.LastInsertId()
	if err == nil {
		event.ID = id
	}
	return nil
}

// ListBookingEvents returns the audit trail of a booking, oldest first. Events outlive
// deleted bookings.
func (db *DB) ListBookingEvents(ctx context.Context, bookingID string) ([]*models.BookingEvent, error) {
	query := `SELECT id, booking_id, event_type, status, actor_id, actor_role, payload, created_at
              FROM booking_events WHERE booking_id = ? ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list booking events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.BookingEvent, 0)
	for rows.Next() {
		var e models.BookingEvent
		if err := rows.Scan(
			&e.ID, &e.BookingID, &e.EventType, &e.Status, &e.ActorID, &e.ActorRole, &e.Payload, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan booking event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
