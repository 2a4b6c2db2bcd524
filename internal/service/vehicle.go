package service

import (
	"context"
	"fmt"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
)

type vehicleService struct {
	tx          repository.Transactor
	vehicleRepo repository.VehicleRepository
	rentalRepo  repository.RentalRepository
}

func NewVehicleService(tx repository.Transactor, vehicleRepo repository.VehicleRepository, rentalRepo repository.RentalRepository) VehicleService {
	return &vehicleService{
		tx:          tx,
		vehicleRepo: vehicleRepo,
		rentalRepo:  rentalRepo,
	}
}

func (s *vehicleService) ListVehicles(ctx context.Context, filter domain.VehicleFilter) ([]domain.Vehicle, int32, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, domain.NewValidationError(fmt.Sprintf("unknown vehicle status %q", filter.Status))
	}
	return s.vehicleRepo.List(ctx, filter)
}

func (s *vehicleService) GetVehicle(ctx context.Context, id int32) (*domain.Vehicle, error) {
	return s.vehicleRepo.GetByID(ctx, id)
}

func (s *vehicleService) CreateVehicle(ctx context.Context, vehicle *domain.Vehicle) error {
	logger.EnterMethod("vehicleService.CreateVehicle", "registration", vehicle.RegistrationNumber)
	if vehicle.Status == "" {
		vehicle.Status = domain.VehicleStatusAvailable
	}
	if err := vehicle.Validate(); err != nil {
		logger.ExitMethodWithError("vehicleService.CreateVehicle", err)
		return err
	}
	if vehicle.Status != domain.VehicleStatusAvailable && vehicle.Status != domain.VehicleStatusMaintenance {
		err := domain.NewValidationError("new vehicles must be available or in maintenance")
		logger.ExitMethodWithError("vehicleService.CreateVehicle", err)
		return err
	}
	if err := s.vehicleRepo.Create(ctx, vehicle); err != nil {
		logger.ExitMethodWithError("vehicleService.CreateVehicle", err)
		return err
	}
	logger.ExitMethod("vehicleService.CreateVehicle", "vehicleID", vehicle.ID)
	return nil
}

// UpdateVehicle replaces the descriptive and pricing fields. Status and image
// are kept as stored; they change through SetStatus, bookings and uploads.
func (s *vehicleService) UpdateVehicle(ctx context.Context, vehicle *domain.Vehicle) error {
	logger.EnterMethod("vehicleService.UpdateVehicle", "vehicleID", vehicle.ID)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		current, err := repos.Vehicles.GetForUpdate(ctx, vehicle.ID)
		if err != nil {
			return err
		}
		vehicle.Status = current.Status
		vehicle.ImageKey = current.ImageKey
		vehicle.CreatedOn = current.CreatedOn
		if err := vehicle.Validate(); err != nil {
			return err
		}
		return repos.Vehicles.Update(ctx, vehicle)
	})
	if err != nil {
		logger.ExitMethodWithError("vehicleService.UpdateVehicle", err, "vehicleID", vehicle.ID)
		return err
	}
	logger.ExitMethod("vehicleService.UpdateVehicle", "vehicleID", vehicle.ID)
	return nil
}

func (s *vehicleService) DeleteVehicle(ctx context.Context, id int32) error {
	logger.EnterMethod("vehicleService.DeleteVehicle", "vehicleID", id)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Vehicles.GetForUpdate(ctx, id); err != nil {
			return err
		}
		open, err := repos.Rentals.CountOpenByVehicle(ctx, id)
		if err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("%w: vehicle has %d open rental(s)", domain.ErrConflict, open)
		}
		return repos.Vehicles.Delete(ctx, id)
	})
	if err != nil {
		logger.ExitMethodWithError("vehicleService.DeleteVehicle", err, "vehicleID", id)
		return err
	}
	logger.ExitMethod("vehicleService.DeleteVehicle", "vehicleID", id)
	return nil
}

// SetStatus moves a vehicle between available and maintenance. Rented and
// reserved belong to the rental lifecycle and cannot be set by hand.
func (s *vehicleService) SetStatus(ctx context.Context, id int32, status domain.VehicleStatus) (*domain.Vehicle, error) {
	logger.EnterMethod("vehicleService.SetStatus", "vehicleID", id, "status", status)
	if !manualStatus(status) {
		err := domain.NewValidationError("status must be available or maintenance")
		logger.ExitMethodWithError("vehicleService.SetStatus", err)
		return nil, err
	}

	var vehicle *domain.Vehicle
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		vehicle, err = repos.Vehicles.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !manualStatus(vehicle.Status) {
			return fmt.Errorf("%w: vehicle is %s", domain.ErrInvalidTransition, vehicle.Status)
		}
		return setVehicleStatus(ctx, repos.Vehicles, vehicle, status)
	})
	if err != nil {
		logger.ExitMethodWithError("vehicleService.SetStatus", err, "vehicleID", id)
		return nil, err
	}
	logger.ExitMethod("vehicleService.SetStatus", "vehicleID", id, "status", vehicle.Status)
	return vehicle, nil
}

func manualStatus(status domain.VehicleStatus) bool {
	return status == domain.VehicleStatusAvailable || status == domain.VehicleStatusMaintenance
}
