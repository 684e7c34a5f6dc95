package models

import "time"

// Booking is the persisted reservation record. Tour and guide are plain references here;
// BookingView carries the expanded form.
type Booking struct {
	ID              string    `json:"id"`
	TourID          string    `json:"tourId"`
	UserID          string    `json:"userId"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Guests          int       `json:"guests"`
	Date            time.Time `json:"date"`
	NeedsGuide      bool      `json:"needsGuide"`
	GuideID         string    `json:"guideId,omitempty"`
	PaymentMethod   string    `json:"paymentMethod"`
	PaymentIntentID string    `json:"paymentIntentId,omitempty"`
	Status          string    `json:"status"` // pending, confirmed, cancelled
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	Version         int64     `json:"version"`
}

func (b *Booking) IsPending() bool {
	return b.Status == StatusPending
}

// TourSummary is the slice of a tour shown next to a booking.
type TourSummary struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

// GuideSummary is the slice of a guide account shown next to a booking.
type GuideSummary struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

// BookingView is a booking with its tour and guide expanded for display.
type BookingView struct {
	ID              string        `json:"id"`
	Tour            *TourSummary  `json:"tourId"`
	UserID          string        `json:"userId"`
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	Guests          int           `json:"guests"`
	Date            time.Time     `json:"date"`
	NeedsGuide      bool          `json:"needsGuide"`
	Guide           *GuideSummary `json:"guideId"`
	PaymentMethod   string        `json:"paymentMethod"`
	PaymentIntentID string        `json:"paymentIntentId,omitempty"`
	Status          string        `json:"status"`
	CreatedAt       time.Time     `json:"createdAt"`
}

func NewBookingView(b *Booking, tour *TourSummary, guide *GuideSummary) *BookingView {
	return &BookingView{
		ID:              b.ID,
		Tour:            tour,
		UserID:          b.UserID,
		Name:            b.Name,
		Email:           b.Email,
		Guests:          b.Guests,
		Date:            b.Date,
		NeedsGuide:      b.NeedsGuide,
		Guide:           guide,
		PaymentMethod:   b.PaymentMethod,
		PaymentIntentID: b.PaymentIntentID,
		Status:          b.Status,
		CreatedAt:       b.CreatedAt,
	}
}

// BookingEvent is one row of a booking's audit trail.
type BookingEvent struct {
	ID        int64     `json:"id"`
	BookingID string    `json:"bookingId"`
	EventType string    `json:"eventType"`
	Status    string    `json:"status"`
	ActorID   string    `json:"actorId"`
	ActorRole string    `json:"actorRole"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}
