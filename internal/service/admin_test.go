package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/repository"
	"carrental-backend/internal/service"
)

type adminFixture struct {
	users    *MockUserRepo
	ledger   *MockLedgerRepo
	stats    *MockStatsRepo
	notifier *MockNotificationService
	svc      service.AdminService
}

func newAdminFixture() *adminFixture {
	f := &adminFixture{
		users:    new(MockUserRepo),
		ledger:   new(MockLedgerRepo),
		stats:    new(MockStatsRepo),
		notifier: new(MockNotificationService),
	}
	tx := &fakeTransactor{repos: repository.Repositories{Users: f.users, Ledger: f.ledger}}
	f.svc = service.NewAdminService(tx, f.users, f.stats, f.notifier)
	return f
}

func TestAdminService_Stats(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	f := newAdminFixture()
	f.stats.On("RentalsByStatus", ctx).Return(map[domain.RentalStatus]int32{domain.RentalStatusActive: 2}, nil)
	f.stats.On("VehiclesByStatus", ctx).Return(map[domain.VehicleStatus]int32{domain.VehicleStatusAvailable: 5}, nil)
	f.stats.On("CountCustomers", ctx).Return(int32(12), nil)
	f.stats.On("Revenue", ctx).Return(dec("1530.40"), nil)
	f.stats.On("MonthlyRevenue", ctx, from).Return([]domain.MonthlyRevenue{
		{Month: "2024-12", Revenue: dec("400")},
		{Month: "2025-03", Revenue: dec("130.40")},
	}, nil)

	stats, err := f.svc.Stats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int32(12), stats.Customers)
	assert.Equal(t, int32(2), stats.RentalsByStatus[domain.RentalStatusActive])
	require.Len(t, stats.MonthlyRevenue, 12)
	assert.Equal(t, "2024-04", stats.MonthlyRevenue[0].Month)
	assert.True(t, stats.MonthlyRevenue[0].Revenue.IsZero())
	assert.Equal(t, "2024-12", stats.MonthlyRevenue[8].Month)
	assert.Equal(t, "400.00", stats.MonthlyRevenue[8].Revenue.StringFixed(2))
	assert.Equal(t, "2025-03", stats.MonthlyRevenue[11].Month)
}

func TestAdminService_SetBlocked(t *testing.T) {
	ctx := context.Background()

	t.Run("Block", func(t *testing.T) {
		f := newAdminFixture()
		f.users.On("UpdateBlocked", ctx, int32(3), true, "chargeback").Return(nil)
		f.users.On("GetByID", ctx, int32(3)).Return(&domain.User{ID: 3, Blocked: true, BlockedReason: "chargeback"}, nil)

		user, err := f.svc.SetBlocked(ctx, 1, 3, true, " chargeback ")
		require.NoError(t, err)
		assert.True(t, user.Blocked)
	})

	t.Run("Unblock clears reason", func(t *testing.T) {
		f := newAdminFixture()
		f.users.On("UpdateBlocked", ctx, int32(3), false, "").Return(nil)
		f.users.On("GetByID", ctx, int32(3)).Return(&domain.User{ID: 3}, nil)

		_, err := f.svc.SetBlocked(ctx, 1, 3, false, "ignored")
		require.NoError(t, err)
		f.users.AssertExpectations(t)
	})

	t.Run("Self block", func(t *testing.T) {
		f := newAdminFixture()
		_, err := f.svc.SetBlocked(ctx, 1, 1, true, "oops")
		assert.ErrorIs(t, err, domain.ErrValidation)
		f.users.AssertNotCalled(t, "UpdateBlocked", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAdminService_SetRole(t *testing.T) {
	ctx := context.Background()

	t.Run("Promote", func(t *testing.T) {
		f := newAdminFixture()
		f.users.On("UpdateRole", ctx, int32(3), domain.RoleEmployee).Return(nil)
		f.users.On("GetByID", ctx, int32(3)).Return(&domain.User{ID: 3, Role: domain.RoleEmployee}, nil)

		user, err := f.svc.SetRole(ctx, 1, 3, domain.RoleEmployee)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleEmployee, user.Role)
	})

	t.Run("Unknown role", func(t *testing.T) {
		f := newAdminFixture()
		_, err := f.svc.SetRole(ctx, 1, 3, "owner")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Self demotion", func(t *testing.T) {
		f := newAdminFixture()
		_, err := f.svc.SetRole(ctx, 1, 1, domain.RoleCustomer)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestAdminService_AdjustBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("Credit", func(t *testing.T) {
		f := newAdminFixture()
		f.users.On("GetForUpdate", ctx, int32(3)).Return(&domain.User{ID: 3, Balance: dec("10")}, nil)
		f.users.On("UpdateBalance", ctx, int32(3), decEq("110")).Return(nil)
		f.ledger.On("Create", ctx, mock.MatchedBy(func(e *domain.LedgerEntry) bool {
			return e.Type == domain.EntryTypeAdjustment && e.Description == "goodwill"
		})).Return(nil)
		f.notifier.On("Notify", ctx, int32(3), "Balance adjusted", mock.Anything, mock.Anything).Return()

		entry, err := f.svc.AdjustBalance(ctx, 1, 3, dec("100"), "goodwill")
		require.NoError(t, err)
		assert.Equal(t, "110.00", entry.BalanceAfter.StringFixed(2))
		f.notifier.AssertExpectations(t)
	})

	t.Run("Cannot go below zero", func(t *testing.T) {
		f := newAdminFixture()
		f.users.On("GetForUpdate", ctx, int32(3)).Return(&domain.User{ID: 3, Balance: dec("10")}, nil)

		_, err := f.svc.AdjustBalance(ctx, 1, 3, dec("-10.01"), "")
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
		f.users.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
		f.ledger.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Zero", func(t *testing.T) {
		f := newAdminFixture()
		_, err := f.svc.AdjustBalance(ctx, 1, 3, dec("0"), "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}
