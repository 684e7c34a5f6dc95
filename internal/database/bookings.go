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

const bookingColumns = `id, tour_id, user_id, name, email, guests, date, needs_guide,
	guide_id, payment_method, payment_intent_id, status, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var guideID, intentID sql.NullString
	err := row.Scan(
		&b.ID, &b.TourID, &b.UserID, &b.Name, &b.Email, &b.Guests, &b.Date, &b.NeedsGuide,
		&guideID, &b.PaymentMethod, &intentID, &b.Status, &b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.GuideID = guideID.String
	b.PaymentIntentID = intentID.String
	return &b, nil
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	booking.Date = booking.Date.UTC()

	query := `INSERT INTO bookings (` + bookingColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		booking.ID, booking.TourID, booking.UserID, booking.Name, booking.Email, booking.Guests,
		booking.Date, booking.NeedsGuide, nullString(booking.GuideID), booking.PaymentMethod,
		nullString(booking.PaymentIntentID), booking.Status, booking.Version, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	return db.queryBooking(ctx, query, id)
}

// GetBookingForUser returns the booking only when it belongs to userID.
func (db *DB) GetBookingForUser(ctx context.Context, id, userID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? AND user_id = ?`
	return db.queryBooking(ctx, query, id, userID)
}

// GetBookingForGuide returns the booking only when guideID is assigned to it.
func (db *DB) GetBookingForGuide(ctx context.Context, id, guideID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? AND guide_id = ?`
	return db.queryBooking(ctx, query, id, guideID)
}

func (db *DB) queryBooking(ctx context.Context, query string, args ...interface{}) (*models.Booking, error) {
	b, err := scanBooking(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (db *DB) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC, id`
	return db.queryBookings(ctx, query)
}

func (db *DB) ListBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id`
	return db.queryBookings(ctx, query, userID)
}

func (db *DB) ListBookingsByGuide(ctx context.Context, guideID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE guide_id = ? ORDER BY date ASC, id`
	return db.queryBookings(ctx, query, guideID)
}

// ListBookingsBetween returns bookings whose tour date falls in [from, to], by date.
func (db *DB) ListBookingsBetween(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE date >= ? AND date <= ? ORDER BY date ASC, id`
	return db.queryBookings(ctx, query, from.UTC(), to.UTC())
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// UpdateBookingDetailsIfPending changes date and guests in one statement guarded by
// ownership and the pending status.
func (db *DB) UpdateBookingDetailsIfPending(ctx context.Context, id, userID string, date time.Time, guests int) error {
	query := `UPDATE bookings
              SET date = ?, guests = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND user_id = ? AND status = ?`
	result, err := db.ExecContext(ctx, query, date.UTC(), guests, time.Now().UTC(), id, userID, models.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	return expectOneRow(result)
}

func (db *DB) TransitionUserBooking(ctx context.Context, id, userID, from, to string) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND user_id = ? AND status = ?`
	result, err := db.ExecContext(ctx, query, to, time.Now().UTC(), id, userID, from)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return expectOneRow(result)
}

func (db *DB) TransitionGuideBooking(ctx context.Context, id, guideID, from, to string) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND guide_id = ? AND status = ?`
	result, err := db.ExecContext(ctx, query, to, time.Now().UTC(), id, guideID, from)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return expectOneRow(result)
}

// UpdateBookingWithVersion writes every mutable field if the stored version still matches
// booking.Version, then advances booking.Version.
func (db *DB) UpdateBookingWithVersion(ctx context.Context, booking *models.Booking) error {
	now := time.Now().UTC()
	query := `UPDATE bookings
              SET tour_id = ?, user_id = ?, name = ?, email = ?, guests = ?, date = ?,
                  needs_guide = ?, guide_id = ?, payment_method = ?, payment_intent_id = ?,
                  status = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query,
		booking.TourID, booking.UserID, booking.Name, booking.Email, booking.Guests, booking.Date.UTC(),
		booking.NeedsGuide, nullString(booking.GuideID), booking.PaymentMethod,
		nullString(booking.PaymentIntentID), booking.Status, now, booking.ID, booking.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrConcurrentModification
	}
	booking.Version++
	booking.UpdatedAt = now
	return nil
}

func (db *DB) DeleteBooking(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("booking: %w", domain.ErrNotFound)
	}
	return nil
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrConditionNotMet
	}
	return nil
}
