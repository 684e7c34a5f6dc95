package domain

import (
	"context"
	"time"

	"tourbook/internal/models"
)

// BookingRepository persists bookings. Conditional updates return ErrConditionNotMet when
// the guarded row does not exist, is not owned, or is not in the expected status.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetBookingForUser(ctx context.Context, id, userID string) (*models.Booking, error)
	GetBookingForGuide(ctx context.Context, id, guideID string) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error)
	ListBookingsByGuide(ctx context.Context, guideID string) ([]*models.Booking, error)
	ListBookingsBetween(ctx context.Context, from, to time.Time) ([]*models.Booking, error)
	UpdateBookingDetailsIfPending(ctx context.Context, id, userID string, date time.Time, guests int) error
	TransitionUserBooking(ctx context.Context, id, userID, from, to string) error
	TransitionGuideBooking(ctx context.Context, id, guideID, from, to string) error
	UpdateBookingWithVersion(ctx context.Context, booking *models.Booking) error
	DeleteBooking(ctx context.Context, id string) error
}

type TourRepository interface {
	UpsertTour(ctx context.Context, tour *models.Tour) error
	GetTour(ctx context.Context, id string) (*models.Tour, error)
	ListTours(ctx context.Context) ([]*models.Tour, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsersByRole(ctx context.Context, role string) ([]*models.User, error)
}

type AuditRepository interface {
	InsertBookingEvent(ctx context.Context, event *models.BookingEvent) error
	ListBookingEvents(ctx context.Context, bookingID string) ([]*models.BookingEvent, error)
}

// TourCatalog resolves tours for pricing and display.
type TourCatalog interface {
	GetTour(ctx context.Context, id string) (*models.Tour, error)
}

// UserDirectory resolves user accounts, e.g. the guide assigned to a booking.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// PaymentGateway creates payment intents and reports their settlement status.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*models.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*models.PaymentIntent, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type RateLimitStore interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
