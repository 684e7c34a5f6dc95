package database

import (
	"context"
	"testing"

	"tourbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingEvents(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := &models.BookingEvent{BookingID: "b1", EventType: "booking_created", Status: models.StatusPending, ActorID: "u1", ActorRole: models.RoleTourist}
	second := &models.BookingEvent{BookingID: "b1", EventType: "booking_cancelled", Status: models.StatusCancelled, ActorID: "u1", ActorRole: models.RoleTourist, Payload: `{"id":"b1"}`}
	other := &models.BookingEvent{BookingID: "b2", EventType: "booking_created"}

	for _, e := range []*models.BookingEvent{first, second, other} {
		require.NoError(t, db.InsertBookingEvent(ctx, e))
		assert.NotZero(t, e.ID)
	}

	events, err := db.ListBookingEvents(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "booking_created", events[0].EventType)
	assert.Equal(t, "{}", events[0].Payload)
	assert.Equal(t, "booking_cancelled", events[1].EventType)
	assert.Equal(t, `{"id":"b1"}`, events[1].Payload)

	empty, err := db.ListBookingEvents(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
