package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"tourbook/internal/auth"
	"tourbook/internal/domain"
	"tourbook/internal/events"
	"tourbook/internal/models"

	"github.com/rs/zerolog"
)

// CreateBookingInput is the tourist-facing booking request.
type CreateBookingInput struct {
	TourID          string `json:"tourId"`
	Name            string `json:"name" validate:"required,max=200"`
	Email           string `json:"email" validate:"required,max=254"`
	Guests          int    `json:"guests" validate:"required,min=1"`
	Date            string `json:"date" validate:"required"`
	NeedsGuide      bool   `json:"needsGuide"`
	GuideID         string `json:"guideId"`
	PaymentMethod   string `json:"paymentMethod"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// AdminCreateBookingInput lets an admin pick the owner and the status directly.
type AdminCreateBookingInput struct {
	CreateBookingInput
	UserID string `json:"userId"`
	Status string `json:"status"`
}

type PaymentIntentInput struct {
	TourID string `json:"tourId"`
	Guests int    `json:"guests" validate:"required,min=1"`
}

type UpdateBookingInput struct {
	Date   string `json:"date" validate:"required"`
	Guests int    `json:"guests" validate:"required,min=1"`
}

// AdminUpdateBookingInput is a partial update; nil fields keep their stored value.
// An empty GuideID or PaymentIntentID clears the field.
type AdminUpdateBookingInput struct {
	TourID          *string `json:"tourId"`
	UserID          *string `json:"userId"`
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Guests          *int    `json:"guests"`
	Date            *string `json:"date"`
	NeedsGuide      *bool   `json:"needsGuide"`
	GuideID         *string `json:"guideId"`
	PaymentMethod   *string `json:"paymentMethod"`
	PaymentIntentID *string `json:"paymentIntentId"`
	Status          *string `json:"status"`
	Version         *int64  `json:"version"`
}

// BookingEventReader exposes the audit trail written by the audit worker.
type BookingEventReader interface {
	ListBookingEvents(ctx context.Context, bookingID string) ([]*models.BookingEvent, error)
}

// BookingService owns every booking transition and its validation. Callers pass the
// identity resolved by the auth guard.
type BookingService struct {
	repo     domain.BookingRepository
	tours    domain.TourCatalog
	users    domain.UserDirectory
	gateway  domain.PaymentGateway
	eventBus domain.EventPublisher
	audit    BookingEventReader
	currency string
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBookingService(
	repo domain.BookingRepository,
	tours domain.TourCatalog,
	users domain.UserDirectory,
	gateway domain.PaymentGateway,
	eventBus domain.EventPublisher,
	audit BookingEventReader,
	currency string,
	logger *zerolog.Logger,
) *BookingService {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingService{
		repo:     repo,
		tours:    tours,
		users:    users,
		gateway:  gateway,
		eventBus: eventBus,
		audit:    audit,
		currency: currency,
		logger:   logger,
		now:      time.Now,
	}
}

func requireRole(id auth.Identity, roles ...string) error {
	if id.UserID == "" {
		return domain.ErrUnauthenticated
	}
	if !id.HasRole(roles...) {
		return fmt.Errorf("role %q: %w", id.Role, domain.ErrForbidden)
	}
	return nil
}

// PaymentAmount converts a tour price into the minor-unit amount charged for guests.
func PaymentAmount(price float64, guests int) int64 {
	return int64(math.Round(price*models.MinorUnitsPerMajor)) * int64(guests)
}

// referencedTour resolves a tourId taken from a request body. An unknown tour there is a
// bad reference, not a missing resource.
func (s *BookingService) referencedTour(ctx context.Context, tourID string) (*models.Tour, error) {
	tour, err := s.tours.GetTour(ctx, tourID)
	if errors.Is(err, domain.ErrTourNotFound) {
		return nil, fmt.Errorf("tour %s: %w", tourID, domain.ErrInvalidReference)
	}
	return tour, err
}

// CreatePaymentIntent prices the tour for the given party size and opens an intent at the
// gateway. Nothing is stored locally.
func (s *BookingService) CreatePaymentIntent(ctx context.Context, id auth.Identity, input PaymentIntentInput) (*models.PaymentIntent, error) {
	if err := requireRole(id, models.RoleTourist); err != nil {
		return nil, err
	}
	if err := checkReference("tourId", input.TourID); err != nil {
		return nil, err
	}
	if err := checkFields(input); err != nil {
		return nil, err
	}

	tour, err := s.referencedTour(ctx, input.TourID)
	if err != nil {
		return nil, err
	}

	amount := PaymentAmount(tour.Price, input.Guests)
	intent, err := s.gateway.CreatePaymentIntent(ctx, amount, s.currency, map[string]string{
		"tour_id": tour.ID,
		"user_id": id.UserID,
		"guests":  strconv.Itoa(input.Guests),
	})
	if err != nil {
		return nil, gatewayError(err)
	}

	s.logger.Info().Str("tour_id", tour.ID).Str("user_id", id.UserID).Int64("amount", amount).Msg("Payment intent created")
	return intent, nil
}

// validateCreate checks the request in the documented order and returns the parsed date.
func (s *BookingService) validateCreate(input *CreateBookingInput) (time.Time, error) {
	if err := checkReference("tourId", input.TourID); err != nil {
		return time.Time{}, err
	}
	if input.GuideID != "" {
		if err := checkReference("guideId", input.GuideID); err != nil {
			return time.Time{}, err
		}
	}
	if !models.IsValidPaymentMethod(input.PaymentMethod) {
		return time.Time{}, fmt.Errorf("payment method %q: %w", input.PaymentMethod, domain.ErrInvalidPaymentMethod)
	}
	if input.PaymentMethod == models.PaymentMethodStripe && input.PaymentIntentID == "" {
		return time.Time{}, domain.ErrMissingPaymentIntent
	}
	if err := checkFields(input); err != nil {
		return time.Time{}, err
	}
	return parseFutureDate(input.Date, s.now())
}

func (s *BookingService) CreateBooking(ctx context.Context, id auth.Identity, input CreateBookingInput) (*models.BookingView, error) {
	if err := requireRole(id, models.RoleTourist); err != nil {
		return nil, err
	}
	date, err := s.validateCreate(&input)
	if err != nil {
		return nil, err
	}

	tour, err := s.referencedTour(ctx, input.TourID)
	if err != nil {
		return nil, err
	}

	booking := newBooking(&input, id.UserID, date)
	switch input.PaymentMethod {
	case models.PaymentMethodStripe:
		intent, err := s.gateway.GetPaymentIntent(ctx, input.PaymentIntentID)
		if err != nil {
			return nil, gatewayError(err)
		}
		if !intent.Succeeded() {
			return nil, fmt.Errorf("payment intent %s is %s: %w", input.PaymentIntentID, intent.Status, domain.ErrPaymentNotCompleted)
		}
		booking.Status = models.StatusConfirmed
		booking.PaymentIntentID = input.PaymentIntentID
	default:
		booking.Status = models.StatusPending
	}

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.Info().Str("booking_id", booking.ID).Str("status", booking.Status).Str("payment_method", booking.PaymentMethod).Msg("Booking created")
	s.publish(events.EventBookingCreated, booking, id)
	return s.view(ctx, booking, tour), nil
}

func newBooking(input *CreateBookingInput, userID string, date time.Time) *models.Booking {
	return &models.Booking{
		TourID:        input.TourID,
		UserID:        userID,
		Name:          input.Name,
		Email:         input.Email,
		Guests:        input.Guests,
		Date:          date,
		NeedsGuide:    input.NeedsGuide,
		GuideID:       input.GuideID,
		PaymentMethod: input.PaymentMethod,
	}
}

// GetBooking returns any booking to an admin and only owned bookings to a tourist.
func (s *BookingService) GetBooking(ctx context.Context, id auth.Identity, bookingID string) (*models.BookingView, error) {
	if err := requireRole(id, models.RoleTourist, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := checkReference("id", bookingID); err != nil {
		return nil, err
	}

	var booking *models.Booking
	var err error
	if id.IsAdmin() {
		booking, err = s.repo.GetBooking(ctx, bookingID)
	} else {
		booking, err = s.repo.GetBookingForUser(ctx, bookingID, id.UserID)
	}
	if err != nil {
		return nil, err
	}
	return s.view(ctx, booking, nil), nil
}

func (s *BookingService) ListOwnBookings(ctx context.Context, id auth.Identity) ([]*models.BookingView, error) {
	if err := requireRole(id, models.RoleTourist); err != nil {
		return nil, err
	}
	bookings, err := s.repo.ListBookingsByUser(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, bookings), nil
}

func (s *BookingService) ListAllBookings(ctx context.Context, id auth.Identity) ([]*models.BookingView, error) {
	if err := requireRole(id, models.RoleAdmin); err != nil {
		return nil, err
	}
	bookings, err := s.repo.ListBookings(ctx)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, bookings), nil
}

func (s *BookingService) ListGuideBookings(ctx context.Context, id auth.Identity) ([]*models.BookingView, error) {
	if err := requireRole(id, models.RoleGuide); err != nil {
		return nil, err
	}
	bookings, err := s.repo.ListBookingsByGuide(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, bookings), nil
}

const (
	defaultExportDays = 30
	maxExportDays     = 366
)

// BookingRange is a date window of bookings, used for the admin export.
type BookingRange struct {
	From     time.Time
	To       time.Time
	Bookings []*models.BookingView
}

// BookingsInRange lists bookings whose tour date falls between from and to, both
// inclusive calendar days. Empty bounds default to today and today plus defaultExportDays.
func (s *BookingService) BookingsInRange(ctx context.Context, id auth.Identity, fromRaw, toRaw string) (*BookingRange, error) {
	if err := requireRole(id, models.RoleAdmin); err != nil {
		return nil, err
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	from, to := today, today.AddDate(0, 0, defaultExportDays)
	var err error
	if strings.TrimSpace(fromRaw) != "" {
		if from, err = parseDate(fromRaw); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(toRaw) != "" {
		if to, err = parseDate(toRaw); err != nil {
			return nil, err
		}
	}
	if to.Before(from) {
		return nil, fmt.Errorf("range ends before it starts: %w", domain.ErrInvalidDate)
	}
	if to.Sub(from) > maxExportDays*24*time.Hour {
		return nil, fmt.Errorf("range longer than %d days: %w", maxExportDays, domain.ErrInvalidDate)
	}

	bookings, err := s.repo.ListBookingsBetween(ctx, from, to.Add(24*time.Hour-time.Nanosecond))
	if err != nil {
		return nil, err
	}
	return &BookingRange{From: from, To: to, Bookings: s.views(ctx, bookings)}, nil
}

// UpdateBooking changes date and guests of the caller's pending booking.
func (s *BookingService) UpdateBooking(ctx context.Context, id auth.Identity, bookingID string, input UpdateBookingInput) (*models.Booking, error) {
	if err := requireRole(id, models.RoleTourist); err != nil {
		return nil, err
	}
	if err := checkReference("id", bookingID); err != nil {
		return nil, err
	}
	if err := checkFields(input); err != nil {
		return nil, err
	}
	date, err := parseFutureDate(input.Date, s.now())
	if err != nil {
		return nil, err
	}

	err = s.repo.UpdateBookingDetailsIfPending(ctx, bookingID, id.UserID, date, input.Guests)
	if errors.Is(err, domain.ErrConditionNotMet) {
		return nil, s.classifyUserFailure(ctx, bookingID, id.UserID, "updated")
	}
	if err != nil {
		return nil, err
	}

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.publish(events.EventBookingUpdated, booking, id)
	return booking, nil
}

// CancelBooking moves the caller's pending booking to cancelled. No refund is issued.
func (s *BookingService) CancelBooking(ctx context.Context, id auth.Identity, bookingID string) (*models.Booking, error) {
	if err := requireRole(id, models.RoleTourist); err != nil {
		return nil, err
	}
	if err := checkReference("id", bookingID); err != nil {
		return nil, err
	}

	err := s.repo.TransitionUserBooking(ctx, bookingID, id.UserID, models.StatusPending, models.StatusCancelled)
	if errors.Is(err, domain.ErrConditionNotMet) {
		return nil, s.classifyUserFailure(ctx, bookingID, id.UserID, "cancelled")
	}
	if err != nil {
		return nil, err
	}

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("booking_id", bookingID).Str("user_id", id.UserID).Msg("Booking cancelled by tourist")
	s.publish(events.EventBookingCancelled, booking, id)
	return booking, nil
}

// classifyUserFailure explains a rejected conditional update on the tourist path.
// Ownership is checked before state so other tourists' bookings stay invisible.
func (s *BookingService) classifyUserFailure(ctx context.Context, bookingID, userID, action string) error {
	booking, err := s.repo.GetBookingForUser(ctx, bookingID, userID)
	if err != nil {
		return err
	}
	if !booking.IsPending() {
		return fmt.Errorf("only pending bookings can be %s: %w", action, domain.ErrInvalidState)
	}
	return domain.ErrConcurrentModification
}

// GuideUpdateStatus lets the assigned guide confirm or cancel a pending booking.
func (s *BookingService) GuideUpdateStatus(ctx context.Context, id auth.Identity, bookingID, status string) (*models.Booking, error) {
	if err := requireRole(id, models.RoleGuide); err != nil {
		return nil, err
	}
	if err := checkReference("id", bookingID); err != nil {
		return nil, err
	}
	if status != models.StatusConfirmed && status != models.StatusCancelled {
		return nil, fmt.Errorf("status %q: %w", status, domain.ErrInvalidStatusValue)
	}

	err := s.repo.TransitionGuideBooking(ctx, bookingID, id.UserID, models.StatusPending, status)
	if errors.Is(err, domain.ErrConditionNotMet) {
		return nil, s.classifyGuideFailure(ctx, bookingID, id.UserID)
	}
	if err != nil {
		return nil, err
	}

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("booking_id", bookingID).Str("guide_id", id.UserID).Str("status", status).Msg("Booking status changed by guide")
	s.publish(events.EventBookingStatusChanged, booking, id)
	return booking, nil
}

// classifyGuideFailure checks existence, then state, then assignment: a booking that is no
// longer pending reports InvalidState to any guide, a pending one not assigned to the
// caller reports NotFound.
func (s *BookingService) classifyGuideFailure(ctx context.Context, bookingID, guideID string) error {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if !booking.IsPending() {
		return fmt.Errorf("only pending bookings can change status: %w", domain.ErrInvalidState)
	}
	if _, err := s.repo.GetBookingForGuide(ctx, bookingID, guideID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("booking not assigned to guide: %w", domain.ErrNotFound)
		}
		return err
	}
	// pending and assigned, so the row changed between the update and this read
	return domain.ErrConcurrentModification
}

// AdminCreateBooking applies the tourist validation but takes owner and status from the
// request and never calls the gateway.
func (s *BookingService) AdminCreateBooking(ctx context.Context, id auth.Identity, input AdminCreateBookingInput) (*models.BookingView, error) {
	if err := requireRole(id, models.RoleAdmin); err != nil {
		return nil, err
	}
	date, err := s.validateCreate(&input.CreateBookingInput)
	if err != nil {
		return nil, err
	}

	ownerID := id.UserID
	if input.UserID != "" {
		if err := checkReference("userId", input.UserID); err != nil {
			return nil, err
		}
		ownerID = input.UserID
	}

	status := input.Status
	if status == "" {
		status = models.StatusPending
	}
	if !models.IsValidStatus(status) {
		return nil, fmt.Errorf("status %q: %w", status, domain.ErrInvalidStatusValue)
	}

	tour, err := s.referencedTour(ctx, input.TourID)
	if err != nil {
		return nil, err
	}

	booking := newBooking(&input.CreateBookingInput, ownerID, date)
	booking.Status = status
	booking.PaymentIntentID = input.PaymentIntentID

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.Info().Str("booking_id", booking.ID).Str("admin_id", id.UserID).Msg("Booking created by admin")
	s.publish(events.EventBookingCreated, booking, id)
	return s.view(ctx, booking, tour), nil
}

// AdminUpdateBooking applies a partial update to any booking regardless of its status.
func (s *BookingService) AdminUpdateBooking(ctx context.Context, id auth.Identity, bookingID string, input AdminUpdateBookingInput) (*models.Booking, error) {
	if err := requireRole(id, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := checkReference("id", bookingID); err != nil {
		return nil, err
	}
	if err := validateAdminUpdate(&input); err != nil {
		return nil, err
	}

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if input.Version != nil && *input.Version != booking.Version {
		return nil, domain.ErrConcurrentModification
	}
	if err := applyAdminUpdate(booking, &input); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateBookingWithVersion(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.Info().Str("booking_id", bookingID).Str("admin_id", id.UserID).Msg("Booking updated by admin")
	s.publish(events.EventBookingAdminUpdated, booking, id)
	return booking, nil
}

func validateAdminUpdate(input *AdminUpdateBookingInput) error {
	refs := []struct {
		field string
		value *string
	}{
		{"tourId", input.TourID},
		{"userId", input.UserID},
		{"guideId", input.GuideID},
	}
	for _, ref := range refs {
		if ref.value == nil {
			continue
		}
		if ref.field == "guideId" && *ref.value == "" {
			continue
		}
		if err := checkReference(ref.field, *ref.value); err != nil {
			return err
		}
	}
	if input.PaymentMethod != nil && !models.IsValidPaymentMethod(*input.PaymentMethod) {
		return fmt.Errorf("payment method %q: %w", *input.PaymentMethod, domain.ErrInvalidPaymentMethod)
	}
	if input.Status != nil && !models.IsValidStatus(*input.Status) {
		return fmt.Errorf("status %q: %w", *input.Status, domain.ErrInvalidStatusValue)
	}
	if input.Name != nil && *input.Name == "" {
		return fmt.Errorf("name: %w", domain.ErrMissingField)
	}
	if input.Email != nil && *input.Email == "" {
		return fmt.Errorf("email: %w", domain.ErrMissingField)
	}
	if input.Guests != nil && *input.Guests < 1 {
		return fmt.Errorf("guests: %w", domain.ErrMissingField)
	}
	return nil
}

func applyAdminUpdate(b *models.Booking, input *AdminUpdateBookingInput) error {
	if input.Date != nil {
		date, err := parseDate(*input.Date)
		if err != nil {
			return err
		}
		b.Date = date
	}
	if input.TourID != nil {
		b.TourID = *input.TourID
	}
	if input.UserID != nil {
		b.UserID = *input.UserID
	}
	if input.Name != nil {
		b.Name = *input.Name
	}
	if input.Email != nil {
		b.Email = *input.Email
	}
	if input.Guests != nil {
		b.Guests = *input.Guests
	}
	if input.NeedsGuide != nil {
		b.NeedsGuide = *input.NeedsGuide
	}
	if input.GuideID != nil {
		b.GuideID = *input.GuideID
	}
	if input.PaymentMethod != nil {
		b.PaymentMethod = *input.PaymentMethod
	}
	if input.PaymentIntentID != nil {
		b.PaymentIntentID = *input.PaymentIntentID
	}
	if input.Status != nil {
		b.Status = *input.Status
	}
	return nil
}

func (s *BookingService) AdminDeleteBooking(ctx context.Context, id auth.Identity, bookingID string) error {
	if err := requireRole(id, models.RoleAdmin); err != nil {
		return err
	}
	if err := checkReference("id", bookingID); err != nil {
		return err
	}

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteBooking(ctx, bookingID); err != nil {
		return err
	}

	s.logger.Info().Str("booking_id", bookingID).Str("admin_id", id.UserID).Msg("Booking deleted by admin")
	s.publish(events.EventBookingDeleted, booking, id)
	return nil
}

// ListBookingEvents returns the audit trail of a booking, including deleted ones.
func (s *BookingService) ListBookingEvents(ctx context.Context, id auth.Identity, bookingID string) ([]*models.BookingEvent, error) {
	if err := requireRole(id, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := checkReference("id", bookingID); err != nil {
		return nil, err
	}
	return s.audit.ListBookingEvents(ctx, bookingID)
}

// view expands tour and guide references. Lookup failures degrade to bare references.
func (s *BookingService) view(ctx context.Context, b *models.Booking, tour *models.Tour) *models.BookingView {
	tourSummary := &models.TourSummary{ID: b.TourID}
	if tour == nil {
		if t, err := s.tours.GetTour(ctx, b.TourID); err == nil {
			tour = t
		} else {
			s.logger.Debug().Err(err).Str("tour_id", b.TourID).Msg("Tour lookup failed while expanding booking")
		}
	}
	if tour != nil {
		tourSummary = tour.Summary()
	}

	var guide *models.GuideSummary
	if b.GuideID != "" {
		guide = &models.GuideSummary{ID: b.GuideID}
		if u, err := s.users.GetUserByID(ctx, b.GuideID); err == nil {
			guide = u.GuideSummary()
		}
	}
	return models.NewBookingView(b, tourSummary, guide)
}

func (s *BookingService) views(ctx context.Context, bookings []*models.Booking) []*models.BookingView {
	tours := make(map[string]*models.Tour)
	out := make([]*models.BookingView, 0, len(bookings))
	for _, b := range bookings {
		tour, ok := tours[b.TourID]
		if !ok {
			if t, err := s.tours.GetTour(ctx, b.TourID); err == nil {
				tour = t
			}
			tours[b.TourID] = tour
		}
		out = append(out, s.view(ctx, b, tour))
	}
	return out
}

func (s *BookingService) publish(eventType string, b *models.Booking, actor auth.Identity) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID: b.ID,
		TourID:    b.TourID,
		UserID:    b.UserID,
		GuideID:   b.GuideID,
		Status:    b.Status,
		Guests:    b.Guests,
		Date:      b.Date,
		ActorID:   actor.UserID,
		ActorRole: actor.Role,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", b.ID).Msg("publish event error")
	}
}

// gatewayError keeps classified gateway failures and marks the rest as ErrGateway.
func gatewayError(err error) error {
	if errors.Is(err, domain.ErrGateway) || errors.Is(err, domain.ErrPaymentNotCompleted) {
		return err
	}
	return fmt.Errorf("payment gateway: %w", errors.Join(domain.ErrGateway, err))
}
