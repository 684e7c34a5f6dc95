package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumValidation(t *testing.T) {
	assert.True(t, IsValidStatus(StatusPending))
	assert.True(t, IsValidStatus(StatusConfirmed))
	assert.True(t, IsValidStatus(StatusCancelled))
	assert.False(t, IsValidStatus("completed"))
	assert.False(t, IsValidStatus(""))

	assert.True(t, IsValidPaymentMethod(PaymentMethodStripe))
	assert.True(t, IsValidPaymentMethod(PaymentMethodCash))
	assert.False(t, IsValidPaymentMethod("paypal"))

	assert.True(t, IsValidRole(RoleGuide))
	assert.False(t, IsValidRole("manager"))
}

func TestPaymentIntentSucceeded(t *testing.T) {
	var nilIntent *PaymentIntent
	assert.False(t, nilIntent.Succeeded())
	assert.False(t, (&PaymentIntent{Status: "requires_payment_method"}).Succeeded())
	assert.True(t, (&PaymentIntent{Status: PaymentIntentSucceeded}).Succeeded())
}

func TestBookingViewJSON(t *testing.T) {
	date := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	booking := &Booking{
		ID:            "b1",
		TourID:        "t1",
		UserID:        "u1",
		Name:          "Ann",
		Email:         "ann@example.com",
		Guests:        2,
		Date:          date,
		PaymentMethod: PaymentMethodCash,
		Status:        StatusPending,
	}
	tour := &Tour{ID: "t1", Title: "Old Town", Price: 100, Description: "walk"}

	t.Run("Expanded", func(t *testing.T) {
		view := NewBookingView(booking, tour.Summary(), nil)
		raw, err := json.Marshal(view)
		require.NoError(t, err)

		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		tourObj, ok := body["tourId"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Old Town", tourObj["title"])
		assert.Equal(t, float64(100), tourObj["price"])
		assert.Nil(t, body["guideId"])
		_, hasIntent := body["paymentIntentId"]
		assert.False(t, hasIntent)
	})

	t.Run("Reference", func(t *testing.T) {
		raw, err := json.Marshal(booking)
		require.NoError(t, err)

		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "t1", body["tourId"])
		assert.Equal(t, "2030-05-01T00:00:00Z", body["date"])
	})

	t.Run("GuideSummary", func(t *testing.T) {
		guide := &User{ID: "g1", FullName: "Gina Guide", Role: RoleGuide}
		view := NewBookingView(booking, nil, guide.GuideSummary())
		assert.Equal(t, "Gina Guide", view.Guide.FullName)
		assert.Nil(t, view.Tour)
	})
}
