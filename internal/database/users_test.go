package database

import (
	"context"
	"testing"

	"tourbook/internal/domain"
	"tourbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	guide := &models.User{FullName: "Greta Guide", Email: "greta@example.com", PasswordHash: "h", Role: models.RoleGuide}
	require.NoError(t, db.CreateUser(ctx, guide))
	assert.NotEmpty(t, guide.ID)

	t.Run("GetByID", func(t *testing.T) {
		got, err := db.GetUserByID(ctx, guide.ID)
		require.NoError(t, err)
		assert.Equal(t, "Greta Guide", got.FullName)
		assert.Equal(t, models.RoleGuide, got.Role)
	})

	t.Run("GetByEmail", func(t *testing.T) {
		got, err := db.GetUserByEmail(ctx, "greta@example.com")
		require.NoError(t, err)
		assert.Equal(t, guide.ID, got.ID)

		_, err = db.GetUserByEmail(ctx, "missing@example.com")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		dup := &models.User{FullName: "Other", Email: "greta@example.com", PasswordHash: "h", Role: models.RoleTourist}
		assert.ErrorIs(t, db.CreateUser(ctx, dup), domain.ErrEmailTaken)
	})

	t.Run("ListByRole", func(t *testing.T) {
		require.NoError(t, db.CreateUser(ctx, &models.User{
			FullName: "Tom", Email: "tom@example.com", PasswordHash: "h", Role: models.RoleTourist,
		}))

		guides, err := db.ListUsersByRole(ctx, models.RoleGuide)
		require.NoError(t, err)
		require.Len(t, guides, 1)
		assert.Equal(t, guide.ID, guides[0].ID)

		admins, err := db.ListUsersByRole(ctx, models.RoleAdmin)
		require.NoError(t, err)
		assert.Empty(t, admins)
	})
}

func TestTours(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tour := &models.Tour{ID: "b9c1f2a4-0000-4000-8000-000000000001", Title: "Old Town Walk", Price: 100, DurationDays: 1}
	require.NoError(t, db.UpsertTour(ctx, tour))

	got, err := db.GetTour(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, "Old Town Walk", got.Title)
	assert.InDelta(t, 100.0, got.Price, 0.001)

	created := got.CreatedAt
	tour.Price = 120
	tour.Title = "Old Town Walk (extended)"
	require.NoError(t, db.UpsertTour(ctx, &models.Tour{ID: tour.ID, Title: tour.Title, Price: tour.Price}))

	got, err = db.GetTour(ctx, tour.ID)
	require.NoError(t, err)
	assert.InDelta(t, 120.0, got.Price, 0.001)
	assert.True(t, created.Equal(got.CreatedAt))

	all, err := db.ListTours(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = db.GetTour(ctx, "b9c1f2a4-0000-4000-8000-000000000002")
	assert.ErrorIs(t, err, domain.ErrTourNotFound)
}
