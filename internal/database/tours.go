package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tourbook/internal/domain"
	"tourbook/internal/models"

	"github.com/google/uuid"
)

// UpsertTour inserts the tour or refreshes its catalogue fields, keeping created_at.
func (db *DB) UpsertTour(ctx context.Context, tour *models.Tour) error {
	if tour.ID == "" {
		tour.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tour.CreatedAt.IsZero() {
		tour.CreatedAt = now
	}
	tour.UpdatedAt = now

	query := `INSERT INTO tours (id, title, description, location, duration_days, price, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                title = excluded.title,
                description = excluded.description,
                location = excluded.location,
                duration_days = excluded.duration_days,
                price = excluded.price,
                updated_at = excluded.updated_at`
	_, err := db.ExecContext(ctx, query,
		tour.ID, tour.Title, tour.Description, tour.Location, tour.DurationDays, tour.Price,
		tour.CreatedAt.UTC(), tour.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert tour: %w", err)
	}
	return nil
}

func (db *DB) GetTour(ctx context.Context, id string) (*models.Tour, error) {
	query := `SELECT id, title, description, location, duration_days, price, created_at, updated_at
              FROM tours WHERE id = ?`
	var t models.Tour
	err := db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Title, &t.Description, &t.Location, &t.DurationDays, &t.Price, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tour %s: %w", id, domain.ErrTourNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tour: %w", err)
	}
	return &t, nil
}

func (db *DB) ListTours(ctx context.Context) ([]*models.Tour, error) {
	query := `SELECT id, title, description, location, duration_days, price, created_at, updated_at
              FROM tours ORDER BY title`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tours: %w", err)
	}
	defer rows.Close()

	tours := make([]*models.Tour, 0)
	for rows.Next() {
		var t models.Tour
		if err := rows.Scan(
			&t.ID, &t.Title, &t.Description, &t.Location, &t.DurationDays, &t.Price, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tour: %w", err)
		}
		tours = append(tours, &t)
	}
	return tours, rows.Err()
}
