package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/pricing"
	"carrental-backend/internal/repository"
)

type rentalService struct {
	tx           repository.Transactor
	rentalRepo   repository.RentalRepository
	vehicleRepo  repository.VehicleRepository
	locationRepo repository.LocationRepository
	userRepo     repository.UserRepository
	notifier     NotificationService
	emailSvc     EmailService
	loc          *time.Location
}

// NewRentalService wires the booking lifecycle. loc is the business time zone
// used to decide whether a booking starts today.
func NewRentalService(
	tx repository.Transactor,
	rentalRepo repository.RentalRepository,
	vehicleRepo repository.VehicleRepository,
	locationRepo repository.LocationRepository,
	userRepo repository.UserRepository,
	notifier NotificationService,
	emailSvc EmailService,
	loc *time.Location,
) RentalService {
	if loc == nil {
		loc = time.UTC
	}
	return &rentalService{
		tx:           tx,
		rentalRepo:   rentalRepo,
		vehicleRepo:  vehicleRepo,
		locationRepo: locationRepo,
		userRepo:     userRepo,
		notifier:     notifier,
		emailSvc:     emailSvc,
		loc:          loc,
	}
}

func (s *rentalService) Quote(ctx context.Context, req QuoteRequest) (*pricing.Breakdown, error) {
	logger.EnterMethod("rentalService.Quote", "customerID", req.CustomerID, "vehicleID", req.VehicleID)

	if err := validateQuote(req); err != nil {
		logger.ExitMethodWithError("rentalService.Quote", err)
		return nil, err
	}
	vehicle, err := s.vehicleRepo.GetByID(ctx, req.VehicleID)
	if err != nil {
		logger.ExitMethodWithError("rentalService.Quote", err, "vehicleID", req.VehicleID)
		return nil, err
	}
	breakdown, err := price(ctx, s.locationRepo, s.rentalRepo, vehicle, req, s.loc)
	if err != nil {
		logger.ExitMethodWithError("rentalService.Quote", err)
		return nil, err
	}

	logger.ExitMethod("rentalService.Quote", "total", breakdown.TotalPrice.String())
	return breakdown, nil
}

func (s *rentalService) ConfirmBooking(ctx context.Context, req BookingRequest) (*domain.Rental, error) {
	logger.EnterMethod("rentalService.ConfirmBooking", "customerID", req.CustomerID, "vehicleID", req.VehicleID, "createdBy", req.CreatedBy)

	if err := s.validateBooking(req); err != nil {
		logger.ExitMethodWithError("rentalService.ConfirmBooking", err)
		return nil, err
	}

	var (
		rental   *domain.Rental
		customer *domain.User
		vehicle  *domain.Vehicle
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		customer, err = repos.Users.GetForUpdate(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		if customer.Blocked {
			return domain.ErrAccountBlocked
		}

		vehicle, err = repos.Vehicles.GetForUpdate(ctx, req.VehicleID)
		if err != nil {
			return err
		}
		if vehicle.Status != domain.VehicleStatusAvailable {
			return domain.ErrVehicleUnavailable
		}

		breakdown, err := price(ctx, repos.Locations, repos.Rentals, vehicle, req.QuoteRequest, s.loc)
		if err != nil {
			return err
		}
		if customer.Balance.LessThan(breakdown.TotalPrice) {
			return domain.ErrInsufficientBalance
		}

		status, vehicleStatus := domain.RentalStatusReserved, domain.VehicleStatusReserved
		if s.startsToday(req.StartAt, req.Now) {
			status, vehicleStatus = domain.RentalStatusActive, domain.VehicleStatusRented
		}

		rental = &domain.Rental{
			CustomerID:            req.CustomerID,
			VehicleID:             req.VehicleID,
			OriginLocationID:      req.OriginLocationID,
			DestinationLocationID: req.DestinationLocationID,
			StartAt:               req.StartAt,
			PlannedEndAt:          req.PlannedEndAt,
			Days:                  breakdown.Days,
			DistanceKm:            breakdown.DistanceKm,
			DistanceFee:           breakdown.DistanceFee,
			BasePrice:             breakdown.BasePrice,
			InsurancePrice:        breakdown.InsurancePrice,
			PremiumInsurance:      req.PremiumInsurance,
			DiscountAmount:        breakdown.DiscountAmount,
			TotalPrice:            breakdown.TotalPrice,
			RefundAmount:          decimal.Zero,
			Status:                status,
			LoyaltyCount:          breakdown.LoyaltyOrdinal,
			Notes:                 req.Notes,
			CreatedBy:             req.CreatedBy,
		}
		if err := repos.Rentals.Create(ctx, rental); err != nil {
			return err
		}

		balance := customer.Balance.Sub(breakdown.TotalPrice)
		if err := repos.Users.UpdateBalance(ctx, customer.ID, balance); err != nil {
			return err
		}
		customer.Balance = balance

		rentalID := rental.ID
		if err := repos.Ledger.Create(ctx, &domain.LedgerEntry{
			UserID:       customer.ID,
			RentalID:     &rentalID,
			Type:         domain.EntryTypeRentalCharge,
			Amount:       breakdown.TotalPrice.Neg(),
			BalanceAfter: balance,
			Description:  fmt.Sprintf("Rental #%d: %s %s", rental.ID, vehicle.Make, vehicle.Model),
		}); err != nil {
			return err
		}

		if err := repos.Vehicles.UpdateStatus(ctx, vehicle.ID, vehicleStatus); err != nil {
			return err
		}
		vehicle.Status = vehicleStatus
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.ConfirmBooking", err, "customerID", req.CustomerID, "vehicleID", req.VehicleID)
		return nil, err
	}

	s.notifier.Notify(ctx, customer.ID, "Booking confirmed",
		fmt.Sprintf("Your %s %s is booked from %s to %s. Charged %s.",
			vehicle.Make, vehicle.Model,
			rental.StartAt.In(s.loc).Format("2006-01-02"), rental.PlannedEndAt.In(s.loc).Format("2006-01-02"),
			rental.TotalPrice.StringFixed(2)),
		map[string]string{"type": "BOOKING_CONFIRMED", "rental_id": fmt.Sprintf("%d", rental.ID)})
	if err := s.emailSvc.SendBookingConfirmation(ctx, customer, rental, vehicle); err != nil {
		logger.Warn("Failed to send booking confirmation", "rentalID", rental.ID, "error", err)
	}

	logger.ExitMethod("rentalService.ConfirmBooking", "rentalID", rental.ID, "status", rental.Status, "total", rental.TotalPrice.String())
	return rental, nil
}

func (s *rentalService) Terminate(ctx context.Context, cmd TerminateCommand) (*domain.Rental, error) {
	logger.EnterMethod("rentalService.Terminate", "rentalID", cmd.RentalID, "actorID", cmd.ActorID, "mode", cmd.Mode)

	switch cmd.Mode {
	case domain.TerminationCancel, domain.TerminationEarlyReturn, domain.TerminationRequestReturn:
	case domain.TerminationApproveReturn, domain.TerminationRejectReturn:
		if !cmd.Privileged {
			logger.ExitMethodWithError("rentalService.Terminate", domain.ErrForbidden)
			return nil, domain.ErrForbidden
		}
		if cmd.Mode == domain.TerminationRejectReturn && strings.TrimSpace(cmd.Reason) == "" {
			err := domain.NewValidationError("reason is required when rejecting a return")
			logger.ExitMethodWithError("rentalService.Terminate", err)
			return nil, err
		}
	default:
		err := domain.NewValidationError(fmt.Sprintf("unknown termination mode %q", cmd.Mode))
		logger.ExitMethodWithError("rentalService.Terminate", err)
		return nil, err
	}

	var (
		rental   *domain.Rental
		customer *domain.User
		vehicle  *domain.Vehicle
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		// Locks are taken user, rental, vehicle: the same order as booking.
		if cmd.Mode == domain.TerminationCancel || cmd.Mode == domain.TerminationEarlyReturn {
			current, err := repos.Rentals.GetByID(ctx, cmd.RentalID)
			if err != nil {
				return err
			}
			if !cmd.Privileged && current.CustomerID != cmd.ActorID {
				return domain.ErrForbidden
			}
			if customer, err = repos.Users.GetForUpdate(ctx, current.CustomerID); err != nil {
				return err
			}
		}

		rental, err = repos.Rentals.GetForUpdate(ctx, cmd.RentalID)
		if err != nil {
			return err
		}
		if !cmd.Privileged && rental.CustomerID != cmd.ActorID {
			return domain.ErrForbidden
		}

		target, err := terminationTarget(rental, cmd)
		if err != nil {
			return err
		}
		from := rental.Status
		if !domain.CanTransition(from, target) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, target)
		}

		vehicle, err = repos.Vehicles.GetForUpdate(ctx, rental.VehicleID)
		if err != nil {
			return err
		}

		now := cmd.Now
		switch target {
		case domain.RentalStatusCancelled, domain.RentalStatusEarlyReturn:
			refund := pricing.Refund(rental, now)
			rental.RefundAmount = refund
			rental.ActualEndAt = &now
			rental.CancellationReason = strings.TrimSpace(cmd.Reason)

			if refund.IsPositive() {
				balance := customer.Balance.Add(refund)
				if err := repos.Users.UpdateBalance(ctx, customer.ID, balance); err != nil {
					return err
				}
				customer.Balance = balance
				rentalID := rental.ID
				if err := repos.Ledger.Create(ctx, &domain.LedgerEntry{
					UserID:       customer.ID,
					RentalID:     &rentalID,
					Type:         domain.EntryTypeRentalRefund,
					Amount:       refund,
					BalanceAfter: balance,
					Description:  fmt.Sprintf("Refund for rental #%d", rental.ID),
				}); err != nil {
					return err
				}
			}
			if err := setVehicleStatus(ctx, repos.Vehicles, vehicle, domain.VehicleStatusAvailable); err != nil {
				return err
			}

		case domain.RentalStatusPendingReturn:
			rental.ActualEndAt = &now

		case domain.RentalStatusCompleted:
			if rental.ActualEndAt == nil {
				rental.ActualEndAt = &now
			}
			if err := setVehicleStatus(ctx, repos.Vehicles, vehicle, domain.VehicleStatusAvailable); err != nil {
				return err
			}

		case domain.RentalStatusActive:
			rental.ActualEndAt = nil
			note := "Return rejected: " + strings.TrimSpace(cmd.Reason)
			if rental.Notes != "" {
				rental.Notes += "\n" + note
			} else {
				rental.Notes = note
			}
		}

		rental.Status = target
		return repos.Rentals.Update(ctx, rental)
	})
	if err != nil {
		logger.ExitMethodWithError("rentalService.Terminate", err, "rentalID", cmd.RentalID)
		return nil, err
	}

	s.notifyTermination(ctx, rental, customer, vehicle, cmd)

	logger.ExitMethod("rentalService.Terminate", "rentalID", rental.ID, "status", rental.Status, "refund", rental.RefundAmount.String())
	return rental, nil
}

func (s *rentalService) GetRental(ctx context.Context, actorID int32, privileged bool, rentalID int32) (*domain.Rental, error) {
	rental, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if !privileged && rental.CustomerID != actorID {
		return nil, domain.ErrForbidden
	}
	return rental, nil
}

func (s *rentalService) ListRentals(ctx context.Context, filter domain.RentalFilter) ([]domain.Rental, int32, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, domain.NewValidationError(fmt.Sprintf("unknown rental status %q", filter.Status))
	}
	return s.rentalRepo.List(ctx, filter)
}

// SweepExpiredAndDueRentals activates reservations whose start has been
// reached, then completes active rentals past their planned end. Every rental
// is handled in its own transaction so one failure does not block the rest.
func (s *rentalService) SweepExpiredAndDueRentals(ctx context.Context, now time.Time) (SweepResult, error) {
	logger.EnterMethod("rentalService.SweepExpiredAndDueRentals", "now", now)
	var result SweepResult

	due, err := s.rentalRepo.ListDueReservations(ctx, now)
	if err != nil {
		logger.ExitMethodWithError("rentalService.SweepExpiredAndDueRentals", err)
		return result, err
	}
	for _, id := range due {
		s.sweepOne(ctx, id, &result, &result.Activated, func(r *domain.Rental) (domain.VehicleStatus, bool) {
			if r.Status != domain.RentalStatusReserved || r.StartAt.After(now) {
				return "", false
			}
			r.Status = domain.RentalStatusActive
			return domain.VehicleStatusRented, true
		})
	}

	expired, err := s.rentalRepo.ListExpiredActive(ctx, now)
	if err != nil {
		logger.ExitMethodWithError("rentalService.SweepExpiredAndDueRentals", err)
		return result, err
	}
	for _, id := range expired {
		s.sweepOne(ctx, id, &result, &result.Completed, func(r *domain.Rental) (domain.VehicleStatus, bool) {
			if r.Status != domain.RentalStatusActive || r.PlannedEndAt.After(now) {
				return "", false
			}
			end := r.PlannedEndAt
			r.ActualEndAt = &end
			r.Status = domain.RentalStatusCompleted
			return domain.VehicleStatusAvailable, true
		})
	}

	logger.ExitMethod("rentalService.SweepExpiredAndDueRentals",
		"activated", result.Activated, "completed", result.Completed,
		"skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

var errSweepSkip = errors.New("rental no longer matches sweep predicate")

func (s *rentalService) sweepOne(ctx context.Context, id int32, result *SweepResult, counter *int,
	apply func(r *domain.Rental) (domain.VehicleStatus, bool)) {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		rental, err := repos.Rentals.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		vehicleStatus, ok := apply(rental)
		if !ok {
			return errSweepSkip
		}
		if err := repos.Rentals.Update(ctx, rental); err != nil {
			return err
		}
		return repos.Vehicles.UpdateStatus(ctx, rental.VehicleID, vehicleStatus)
	})
	switch {
	case err == nil:
		*counter++
	case errors.Is(err, errSweepSkip):
		result.Skipped++
	default:
		result.Failed++
		logger.Error("Rental sweep failed", "rentalID", id, "error", err)
	}
}

// price is the single entry point into the calculator for quotes and bookings.
// Dates are moved into the business time zone so days follow its calendar.
func price(ctx context.Context, locations repository.LocationRepository, rentals repository.RentalRepository,
	vehicle *domain.Vehicle, req QuoteRequest, loc *time.Location) (*pricing.Breakdown, error) {
	origin, err := locations.GetByID(ctx, req.OriginLocationID)
	if err != nil {
		return nil, fmt.Errorf("origin location: %w", err)
	}
	destination, err := locations.GetByID(ctx, req.DestinationLocationID)
	if err != nil {
		return nil, fmt.Errorf("destination location: %w", err)
	}
	qualifying, err := rentals.CountQualifying(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	return pricing.Calculate(pricing.QuoteInput{
		Vehicle:           vehicle,
		Origin:            origin,
		Destination:       destination,
		StartAt:           req.StartAt.In(loc),
		PlannedEndAt:      req.PlannedEndAt.In(loc),
		PremiumInsurance:  req.PremiumInsurance,
		QualifyingRentals: qualifying,
	})
}

func validateQuote(req QuoteRequest) error {
	var details []string
	if req.CustomerID <= 0 {
		details = append(details, "customer_id is required")
	}
	if req.VehicleID <= 0 {
		details = append(details, "vehicle_id is required")
	}
	if req.OriginLocationID <= 0 {
		details = append(details, "origin_location_id is required")
	}
	if req.DestinationLocationID <= 0 {
		details = append(details, "destination_location_id is required")
	}
	if req.StartAt.IsZero() || req.PlannedEndAt.IsZero() {
		details = append(details, "start_at and planned_end_at are required")
	} else if !req.PlannedEndAt.After(req.StartAt) {
		details = append(details, "planned_end_at must be after start_at")
	}
	if len(details) > 0 {
		return domain.NewValidationError(details...)
	}
	return nil
}

func (s *rentalService) validateBooking(req BookingRequest) error {
	if err := validateQuote(req.QuoteRequest); err != nil {
		return err
	}
	if req.Now.IsZero() {
		return domain.NewValidationError("booking time is required")
	}
	if s.day(req.StartAt).Before(s.day(req.Now)) {
		return domain.NewValidationError("start_at must not be in the past")
	}
	return nil
}

func (s *rentalService) day(t time.Time) time.Time {
	y, m, d := t.In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func (s *rentalService) startsToday(start, now time.Time) bool {
	return s.day(start).Equal(s.day(now))
}

// terminationTarget resolves the status a command moves the rental to, or
// ErrInvalidTransition when the mode does not apply to the current status.
func terminationTarget(r *domain.Rental, cmd TerminateCommand) (domain.RentalStatus, error) {
	switch cmd.Mode {
	case domain.TerminationCancel:
		switch r.Status {
		case domain.RentalStatusReserved:
			return domain.RentalStatusCancelled, nil
		case domain.RentalStatusActive:
			if cmd.Now.Before(r.StartAt) {
				return domain.RentalStatusCancelled, nil
			}
			return domain.RentalStatusEarlyReturn, nil
		}
	case domain.TerminationEarlyReturn:
		if r.Status == domain.RentalStatusActive && !cmd.Now.Before(r.StartAt) {
			return domain.RentalStatusEarlyReturn, nil
		}
	case domain.TerminationRequestReturn:
		if r.Status == domain.RentalStatusActive {
			return domain.RentalStatusPendingReturn, nil
		}
	case domain.TerminationApproveReturn:
		if r.Status == domain.RentalStatusPendingReturn {
			return domain.RentalStatusCompleted, nil
		}
	case domain.TerminationRejectReturn:
		if r.Status == domain.RentalStatusPendingReturn {
			return domain.RentalStatusActive, nil
		}
	}
	return "", fmt.Errorf("%w: cannot %s a %s rental", domain.ErrInvalidTransition, cmd.Mode, r.Status)
}

func setVehicleStatus(ctx context.Context, repo repository.VehicleRepository, v *domain.Vehicle, status domain.VehicleStatus) error {
	if v.Status == status {
		return nil
	}
	if err := repo.UpdateStatus(ctx, v.ID, status); err != nil {
		return err
	}
	v.Status = status
	return nil
}

func (s *rentalService) notifyTermination(ctx context.Context, r *domain.Rental, customer *domain.User, v *domain.Vehicle, cmd TerminateCommand) {
	attrs := map[string]string{"rental_id": fmt.Sprintf("%d", r.ID)}
	switch r.Status {
	case domain.RentalStatusCancelled, domain.RentalStatusEarlyReturn:
		attrs["type"] = "RENTAL_CANCELLED"
		s.notifier.Notify(ctx, r.CustomerID, "Rental cancelled",
			fmt.Sprintf("Rental #%d was closed. Refund: %s.", r.ID, r.RefundAmount.StringFixed(2)), attrs)
		if customer == nil {
			var err error
			if customer, err = s.userRepo.GetByID(ctx, r.CustomerID); err != nil {
				logger.Warn("Failed to load customer for cancellation notice", "rentalID", r.ID, "error", err)
				return
			}
		}
		if err := s.emailSvc.SendCancellationNotice(ctx, customer, r, v); err != nil {
			logger.Warn("Failed to send cancellation notice", "rentalID", r.ID, "error", err)
		}
	case domain.RentalStatusPendingReturn:
		attrs["type"] = "RETURN_REQUESTED"
		s.notifier.Notify(ctx, r.CustomerID, "Return requested",
			fmt.Sprintf("Your return of rental #%d is waiting for review.", r.ID), attrs)
	case domain.RentalStatusCompleted, domain.RentalStatusActive:
		approved := r.Status == domain.RentalStatusCompleted
		title := "Return approved"
		attrs["type"] = "RETURN_APPROVED"
		if !approved {
			title = "Return rejected"
			attrs["type"] = "RETURN_REJECTED"
		}
		s.notifier.Notify(ctx, r.CustomerID, title, fmt.Sprintf("Rental #%d: %s.", r.ID, strings.ToLower(title)), attrs)
		user, err := s.userRepo.GetByID(ctx, r.CustomerID)
		if err != nil {
			logger.Warn("Failed to load customer for return decision", "rentalID", r.ID, "error", err)
			return
		}
		if err := s.emailSvc.SendReturnDecision(ctx, user, r, approved, cmd.Reason); err != nil {
			logger.Warn("Failed to send return decision", "rentalID", r.ID, "error", err)
		}
	}
}
