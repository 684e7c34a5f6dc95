package service

import (
	"context"
	"fmt"
	"sync"

	"tourbook/internal/domain"
	"tourbook/internal/models"

	"github.com/rs/zerolog"
)

// TourService serves the read-only tour catalogue from an in-memory copy of the store.
type TourService struct {
	repo     domain.TourRepository
	logger   *zerolog.Logger
	tours    []*models.Tour
	toursMap map[string]*models.Tour
	mu       sync.RWMutex
}

func NewTourService(repo domain.TourRepository, logger *zerolog.Logger) *TourService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &TourService{
		repo:     repo,
		logger:   logger,
		toursMap: make(map[string]*models.Tour),
	}
}

// Seed upserts the given tours and reloads the cache.
func (s *TourService) Seed(ctx context.Context, tours []*models.Tour) error {
	for _, tour := range tours {
		if tour.Title == "" {
			return fmt.Errorf("tour %s: title: %w", tour.ID, domain.ErrMissingField)
		}
		if tour.ID != "" {
			if err := checkReference("id", tour.ID); err != nil {
				return err
			}
		}
		if err := s.repo.UpsertTour(ctx, tour); err != nil {
			return err
		}
	}
	s.logger.Info().Int("count", len(tours)).Msg("Tours seeded")
	return s.Refresh(ctx)
}

func (s *TourService) Refresh(ctx context.Context) error {
	tours, err := s.repo.ListTours(ctx)
	if err != nil {
		return err
	}

	toursMap := make(map[string]*models.Tour, len(tours))
	for _, tour := range tours {
		toursMap[tour.ID] = tour
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tours = tours
	s.toursMap = toursMap
	return nil
}

func (s *TourService) ListTours(_ context.Context) ([]*models.Tour, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Tour, len(s.tours))
	copy(out, s.tours)
	return out, nil
}

// GetTour reads through to the store on a cache miss.
func (s *TourService) GetTour(ctx context.Context, id string) (*models.Tour, error) {
	if err := checkReference("tourId", id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	tour, ok := s.toursMap[id]
	s.mu.RUnlock()
	if ok {
		return tour, nil
	}

	tour, err := s.repo.GetTour(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.toursMap[id] = tour
	s.mu.Unlock()
	return tour, nil
}
