package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
)

// revenueMonths is the length of the dashboard revenue series.
const revenueMonths = 12

type adminService struct {
	tx        repository.Transactor
	userRepo  repository.UserRepository
	statsRepo repository.StatsRepository
	notifier  NotificationService
}

func NewAdminService(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	statsRepo repository.StatsRepository,
	notifier NotificationService,
) AdminService {
	return &adminService{
		tx:        tx,
		userRepo:  userRepo,
		statsRepo: statsRepo,
		notifier:  notifier,
	}
}

func (s *adminService) Stats(ctx context.Context, now time.Time) (*domain.DashboardStats, error) {
	logger.EnterMethod("adminService.Stats")

	rentals, err := s.statsRepo.RentalsByStatus(ctx)
	if err != nil {
		logger.ExitMethodWithError("adminService.Stats", err)
		return nil, fmt.Errorf("failed to count rentals: %w", err)
	}
	vehicles, err := s.statsRepo.VehiclesByStatus(ctx)
	if err != nil {
		logger.ExitMethodWithError("adminService.Stats", err)
		return nil, fmt.Errorf("failed to count vehicles: %w", err)
	}
	customers, err := s.statsRepo.CountCustomers(ctx)
	if err != nil {
		logger.ExitMethodWithError("adminService.Stats", err)
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	revenue, err := s.statsRepo.Revenue(ctx)
	if err != nil {
		logger.ExitMethodWithError("adminService.Stats", err)
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	from := firstOfMonth(now).AddDate(0, -(revenueMonths - 1), 0)
	monthly, err := s.statsRepo.MonthlyRevenue(ctx, from)
	if err != nil {
		logger.ExitMethodWithError("adminService.Stats", err)
		return nil, fmt.Errorf("failed to load monthly revenue: %w", err)
	}

	stats := &domain.DashboardStats{
		RentalsByStatus:  rentals,
		VehiclesByStatus: vehicles,
		Customers:        customers,
		Revenue:          revenue,
		MonthlyRevenue:   fillMonths(from, monthly),
	}
	logger.ExitMethod("adminService.Stats", "customers", customers, "revenue", revenue.String())
	return stats, nil
}

func (s *adminService) ListUsers(ctx context.Context, query string, page, pageSize int32) ([]domain.User, int32, error) {
	return s.userRepo.List(ctx, strings.TrimSpace(query), page, pageSize)
}

func (s *adminService) SetRole(ctx context.Context, adminID, userID int32, role domain.Role) (*domain.User, error) {
	logger.EnterMethod("adminService.SetRole", "adminID", adminID, "userID", userID, "role", role)
	if !role.Valid() {
		err := domain.NewValidationError(fmt.Sprintf("unknown role %q", role))
		logger.ExitMethodWithError("adminService.SetRole", err)
		return nil, err
	}
	if adminID == userID && role != domain.RoleAdmin {
		err := domain.NewValidationError("admins cannot demote themselves")
		logger.ExitMethodWithError("adminService.SetRole", err)
		return nil, err
	}
	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		logger.ExitMethodWithError("adminService.SetRole", err, "userID", userID)
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	logger.ExitMethod("adminService.SetRole", "userID", userID, "role", user.Role)
	return user, nil
}

func (s *adminService) SetBlocked(ctx context.Context, adminID, userID int32, blocked bool, reason string) (*domain.User, error) {
	logger.EnterMethod("adminService.SetBlocked", "adminID", adminID, "userID", userID, "blocked", blocked)
	if adminID == userID && blocked {
		err := domain.NewValidationError("admins cannot block themselves")
		logger.ExitMethodWithError("adminService.SetBlocked", err)
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if !blocked {
		reason = ""
	}
	if err := s.userRepo.UpdateBlocked(ctx, userID, blocked, reason); err != nil {
		logger.ExitMethodWithError("adminService.SetBlocked", err, "userID", userID)
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	logger.ExitMethod("adminService.SetBlocked", "userID", userID, "blocked", user.Blocked)
	return user, nil
}

// AdjustBalance applies a signed manual correction. It fails with
// ErrInsufficientBalance when the balance would drop below zero.
func (s *adminService) AdjustBalance(ctx context.Context, adminID, userID int32, amount decimal.Decimal, note string) (*domain.LedgerEntry, error) {
	logger.EnterMethod("adminService.AdjustBalance", "adminID", adminID, "userID", userID, "amount", amount.String())
	amount = amount.Round(2)
	if amount.IsZero() {
		err := domain.NewValidationError("amount must not be zero")
		logger.ExitMethodWithError("adminService.AdjustBalance", err)
		return nil, err
	}
	description := strings.TrimSpace(note)
	if description == "" {
		description = fmt.Sprintf("Manual adjustment by admin #%d", adminID)
	}

	entry, err := credit(ctx, s.tx, userID, amount, domain.EntryTypeAdjustment, description)
	if err != nil {
		logger.ExitMethodWithError("adminService.AdjustBalance", err, "userID", userID)
		return nil, err
	}
	s.notifier.Notify(ctx, userID, "Balance adjusted",
		fmt.Sprintf("Your balance changed by %s. New balance: %s.", amount.StringFixed(2), entry.BalanceAfter.StringFixed(2)),
		map[string]string{"type": "BALANCE_ADJUSTED"})

	logger.ExitMethod("adminService.AdjustBalance", "userID", userID, "balance", entry.BalanceAfter.String())
	return entry, nil
}

func firstOfMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// fillMonths returns one point per month starting at from, with zero revenue
// for months that had no ledger activity.
func fillMonths(from time.Time, rows []domain.MonthlyRevenue) []domain.MonthlyRevenue {
	byMonth := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		byMonth[r.Month] = r.Revenue
	}
	series := make([]domain.MonthlyRevenue, 0, revenueMonths)
	for i := 0; i < revenueMonths; i++ {
		month := from.AddDate(0, i, 0).Format("2006-01")
		series = append(series, domain.MonthlyRevenue{Month: month, Revenue: byMonth[month]})
	}
	return series
}
