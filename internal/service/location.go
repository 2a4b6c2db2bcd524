package service

import (
	"context"
	"strings"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/repository"
)

type locationService struct {
	locationRepo repository.LocationRepository
}

func NewLocationService(locationRepo repository.LocationRepository) LocationService {
	return &locationService{locationRepo: locationRepo}
}

func (s *locationService) ListLocations(ctx context.Context, city string) ([]domain.Location, error) {
	return s.locationRepo.List(ctx, strings.TrimSpace(city))
}

func (s *locationService) GetLocation(ctx context.Context, id int32) (*domain.Location, error) {
	return s.locationRepo.GetByID(ctx, id)
}

func (s *locationService) CreateLocation(ctx context.Context, loc *domain.Location) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	return s.locationRepo.Create(ctx, loc)
}

func (s *locationService) UpdateLocation(ctx context.Context, loc *domain.Location) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	return s.locationRepo.Update(ctx, loc)
}

// DeleteLocation fails with ErrConflict while vehicles or rentals reference it.
func (s *locationService) DeleteLocation(ctx context.Context, id int32) error {
	return s.locationRepo.Delete(ctx, id)
}
