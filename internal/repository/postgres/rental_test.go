package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/repository/postgres"
)

var rentalRowColumns = []string{"id", "customer_id", "vehicle_id", "origin_location_id", "destination_location_id", "start_at", "planned_end_at", "actual_end_at",
	"days", "distance_km", "distance_fee", "base_price", "insurance_price", "premium_insurance", "discount_amount", "total_price", "refund_amount",
	"status", "loyalty_count", "notes", "cancellation_reason", "created_by", "created_on", "updated_on"}

func TestRentalRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewRentalRepository(db)
	ctx := context.Background()
	start := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

	newRental := func() *domain.Rental {
		return &domain.Rental{
			CustomerID: 3, VehicleID: 7, OriginLocationID: 1, DestinationLocationID: 2,
			StartAt: start, PlannedEndAt: start.Add(72 * time.Hour), Days: 3,
			BasePrice: decimal.RequireFromString("450"), TotalPrice: decimal.RequireFromString("465"),
			Status: domain.RentalStatusReserved, LoyaltyCount: 5, CreatedBy: 3,
		}
	}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO rentals").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_on", "updated_on"}).AddRow(100, time.Now(), time.Now()))

		rental := newRental()
		require.NoError(t, repo.Create(ctx, rental))
		assert.Equal(t, int32(100), rental.ID)
	})

	t.Run("Vehicle already has an open rental", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO rentals").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "rentals_one_open_per_vehicle"})

		err := repo.Create(ctx, newRental())
		assert.ErrorIs(t, err, domain.ErrVehicleUnavailable)
	})

	t.Run("Check constraint", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO rentals").
			WillReturnError(&pq.Error{Code: "23514", Message: "new row violates check constraint"})

		err := repo.Create(ctx, newRental())
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_GetForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewRentalRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows(rentalRowColumns).
		AddRow(100, 3, 7, 1, 2, now, now.Add(72*time.Hour), nil,
			3, "0", "0", "450.00", "60.00", false, "45.00", "465.00", "0",
			"reserved", 5, "", "", 3, now, now)
	mock.ExpectQuery(`SELECT (.+) FROM rentals WHERE id = \$1 FOR UPDATE`).
		WithArgs(int32(100)).
		WillReturnRows(rows)

	rental, err := repo.GetForUpdate(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalStatusReserved, rental.Status)
	assert.Nil(t, rental.ActualEndAt)
	assert.Equal(t, "465.00", rental.TotalPrice.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewRentalRepository(db)
	end := time.Now()
	rental := &domain.Rental{ID: 100, Status: domain.RentalStatusEarlyReturn, ActualEndAt: &end,
		RefundAmount: decimal.RequireFromString("600"), CancellationReason: "plans changed"}

	mock.ExpectExec("UPDATE rentals SET status").
		WithArgs(rental.Status, sqlmock.AnyArg(), rental.RefundAmount, "", "plans changed", int32(100)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Update(context.Background(), rental))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_Counts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewRentalRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT count\(\*\) FROM rentals WHERE customer_id = \$1 AND status = ANY\(\$2\)`).
		WithArgs(int32(3), pq.Array([]string{"completed", "active", "early_return"})).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	n, err := repo.CountQualifying(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	mock.ExpectQuery(`SELECT count\(\*\) FROM rentals WHERE vehicle_id = \$1 AND status = ANY\(\$2\)`).
		WithArgs(int32(7), pq.Array([]string{"reserved", "active", "pending_return"})).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	n, err = repo.CountOpenByVehicle(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRentalRepository_SweepCandidates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := postgres.NewRentalRepository(db)
	ctx := context.Background()
	now := time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id FROM rentals WHERE status = \$1 AND start_at <= \$2`).
		WithArgs(domain.RentalStatusReserved, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(5))
	due, err := repo.ListDueReservations(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 5}, due)

	mock.ExpectQuery(`SELECT id FROM rentals WHERE status = \$1 AND planned_end_at <= \$2`).
		WithArgs(domain.RentalStatusActive, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	expired, err := repo.ListExpiredActive(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, expired)

	assert.NoError(t, mock.ExpectationsWereMet())
}
