package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"tourbook/internal/domain"
	"tourbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTourRepo struct {
	mock.Mock
}

func (m *mockTourRepo) UpsertTour(ctx context.Context, tour *models.Tour) error {
	return m.Called(ctx, tour).Error(0)
}

func (m *mockTourRepo) GetTour(ctx context.Context, id string) (*models.Tour, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tour), args.Error(1)
}

func (m *mockTourRepo) ListTours(ctx context.Context) ([]*models.Tour, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Tour), args.Error(1)
}

func TestTourService(t *testing.T) {
	repo := new(mockTourRepo)
	logger := zerolog.New(io.Discard)
	s := NewTourService(repo, &logger)
	ctx := context.Background()

	tour := &models.Tour{ID: testTourID, Title: "Old Town Walk", Price: 100}

	t.Run("SeedAndList", func(t *testing.T) {
		repo.On("UpsertTour", ctx, tour).Return(nil).Once()
		repo.On("ListTours", ctx).Return([]*models.Tour{tour}, nil).Once()

		require.NoError(t, s.Seed(ctx, []*models.Tour{tour}))
		list, err := s.ListTours(ctx)
		require.NoError(t, err)
		assert.Equal(t, []*models.Tour{tour}, list)
		repo.AssertExpectations(t)
	})

	t.Run("GetFromCache", func(t *testing.T) {
		got, err := s.GetTour(ctx, testTourID)
		require.NoError(t, err)
		assert.Equal(t, tour, got)
		repo.AssertNotCalled(t, "GetTour", ctx, testTourID)
	})

	t.Run("ReadThroughOnMiss", func(t *testing.T) {
		other := &models.Tour{ID: "5d1c9e47-4d7e-4b8a-8f3e-2a6b9c0d1e22", Title: "Lake"}
		repo.On("GetTour", ctx, other.ID).Return(other, nil).Once()

		got, err := s.GetTour(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, other, got)

		got, err = s.GetTour(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, other, got)
		repo.AssertExpectations(t)
	})

	t.Run("NotFound", func(t *testing.T) {
		missing := "7a3b2c1d-0000-4000-8000-000000000000"
		repo.On("GetTour", ctx, missing).Return(nil, domain.ErrTourNotFound).Once()
		_, err := s.GetTour(ctx, missing)
		assert.ErrorIs(t, err, domain.ErrTourNotFound)
	})

	t.Run("MalformedID", func(t *testing.T) {
		_, err := s.GetTour(ctx, "abc")
		assert.ErrorIs(t, err, domain.ErrInvalidReference)
	})

	t.Run("SeedRejectsUntitled", func(t *testing.T) {
		err := s.Seed(ctx, []*models.Tour{{ID: testTourID}})
		assert.ErrorIs(t, err, domain.ErrMissingField)
	})

	t.Run("RefreshError", func(t *testing.T) {
		repo.On("ListTours", ctx).Return(nil, errors.New("db closed")).Once()
		assert.Error(t, s.Refresh(ctx))

		list, err := s.ListTours(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}
