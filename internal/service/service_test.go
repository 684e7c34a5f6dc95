package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"tourbook/internal/auth"
	"tourbook/internal/database"
	"tourbook/internal/events"
	"tourbook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testTourID = "0b6f8a52-8c1e-4c3e-9a55-1f0d2f7c9a01"

var fixedNow = time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*models.PaymentIntent, error) {
	args := m.Called(ctx, amount, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentIntent), args.Error(1)
}

func (m *mockGateway) GetPaymentIntent(ctx context.Context, id string) (*models.PaymentIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentIntent), args.Error(1)
}

type fixture struct {
	db       *database.DB
	bookings *BookingService
	tours    *TourService
	users    *UserService
	gateway  *mockGateway
	guide1   *models.User
	guide2   *models.User

	mu        sync.Mutex
	published []string
}

func (f *fixture) publishedEvents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.published...)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{db: db, gateway: new(mockGateway)}

	f.tours = NewTourService(db, &logger)
	require.NoError(t, f.tours.Seed(context.Background(), []*models.Tour{
		{ID: testTourID, Title: "Old Town Walk", Description: "Three hours downtown", Price: 100, DurationDays: 1},
	}))

	f.users = NewUserService(db, bcrypt.MinCost, &logger)
	admin := auth.Identity{UserID: uuid.NewString(), Role: models.RoleAdmin}
	f.guide1, err = f.users.CreateUser(context.Background(), admin, CreateUserInput{
		FullName: "Greta Guide", Email: "greta@example.com", Password: "password1", Role: models.RoleGuide,
	})
	require.NoError(t, err)
	f.guide2, err = f.users.CreateUser(context.Background(), admin, CreateUserInput{
		FullName: "Gus Guide", Email: "gus@example.com", Password: "password2", Role: models.RoleGuide,
	})
	require.NoError(t, err)

	bus := events.NewEventBus()
	bus.SubscribeAll(func(e *events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.published = append(f.published, e.Type)
		return nil
	})

	f.bookings = NewBookingService(db, f.tours, f.users, f.gateway, bus, db, "usd", &logger)
	f.bookings.now = func() time.Time { return fixedNow }
	return f
}

func tourist() auth.Identity {
	return auth.Identity{UserID: uuid.NewString(), Role: models.RoleTourist}
}

func adminID() auth.Identity {
	return auth.Identity{UserID: uuid.NewString(), Role: models.RoleAdmin}
}

func guideID(u *models.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Role: models.RoleGuide}
}

func cashInput() CreateBookingInput {
	return CreateBookingInput{
		TourID:        testTourID,
		Name:          "Ann Tourist",
		Email:         "ann@example.com",
		Guests:        2,
		Date:          "2030-06-02",
		PaymentMethod: models.PaymentMethodCash,
	}
}
