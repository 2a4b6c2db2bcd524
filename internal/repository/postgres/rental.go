package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
)

const rentalColumns = `id, customer_id, vehicle_id, origin_location_id, destination_location_id, start_at, planned_end_at, actual_end_at,
	days, distance_km, distance_fee, base_price, insurance_price, premium_insurance, discount_amount, total_price, refund_amount,
	status, loyalty_count, COALESCE(notes, ''), COALESCE(cancellation_reason, ''), created_by, created_on, updated_on`

type rentalRepository struct {
	db DBTX
}

func NewRentalRepository(db DBTX) repository.RentalRepository {
	return &rentalRepository{db: db}
}

func scanRental(row rowScanner) (*domain.Rental, error) {
	rt := &domain.Rental{}
	err := row.Scan(&rt.ID, &rt.CustomerID, &rt.VehicleID, &rt.OriginLocationID, &rt.DestinationLocationID, &rt.StartAt, &rt.PlannedEndAt, &rt.ActualEndAt,
		&rt.Days, &rt.DistanceKm, &rt.DistanceFee, &rt.BasePrice, &rt.InsurancePrice, &rt.PremiumInsurance, &rt.DiscountAmount, &rt.TotalPrice, &rt.RefundAmount,
		&rt.Status, &rt.LoyaltyCount, &rt.Notes, &rt.CancellationReason, &rt.CreatedBy, &rt.CreatedOn, &rt.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	query := `INSERT INTO rentals (customer_id, vehicle_id, origin_location_id, destination_location_id, start_at, planned_end_at,
	            days, distance_km, distance_fee, base_price, insurance_price, premium_insurance, discount_amount, total_price,
	            status, loyalty_count, notes, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	          RETURNING id, created_on, updated_on`
	logger.DatabaseCall("INSERT", "rentals", "customerID", rt.CustomerID, "vehicleID", rt.VehicleID)
	err := r.db.QueryRowContext(ctx, query, rt.CustomerID, rt.VehicleID, rt.OriginLocationID, rt.DestinationLocationID, rt.StartAt, rt.PlannedEndAt,
		rt.Days, rt.DistanceKm, rt.DistanceFee, rt.BasePrice, rt.InsurancePrice, rt.PremiumInsurance, rt.DiscountAmount, rt.TotalPrice,
		rt.Status, rt.LoyaltyCount, rt.Notes, rt.CreatedBy).
		Scan(&rt.ID, &rt.CreatedOn, &rt.UpdatedOn)
	logger.DatabaseResult("INSERT", 1, err, "rentalID", rt.ID)
	return mapError(err)
}

func (r *rentalRepository) GetByID(ctx context.Context, id int32) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`
	rt, err := scanRental(r.db.QueryRowContext(ctx, query, id))
	return rt, mapError(err)
}

func (r *rentalRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1 FOR UPDATE`
	rt, err := scanRental(r.db.QueryRowContext(ctx, query, id))
	return rt, mapError(err)
}

// Update persists the mutable lifecycle fields of a rental.
func (r *rentalRepository) Update(ctx context.Context, rt *domain.Rental) error {
	query := `UPDATE rentals SET status=$1, actual_end_at=$2, refund_amount=$3, notes=$4, cancellation_reason=$5, updated_on=NOW()
	          WHERE id=$6`
	logger.DatabaseCall("UPDATE", "rentals", "rentalID", rt.ID, "status", rt.Status)
	return mustAffect(r.db.ExecContext(ctx, query, rt.Status, rt.ActualEndAt, rt.RefundAmount, rt.Notes, rt.CancellationReason, rt.ID))
}

func (r *rentalRepository) List(ctx context.Context, f domain.RentalFilter) ([]domain.Rental, int32, error) {
	sql := `SELECT ` + rentalColumns + ` FROM rentals WHERE 1=1`
	args := []any{}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.CustomerID != 0 {
		sql += " AND customer_id = " + next(f.CustomerID)
	}
	if f.Status != "" {
		sql += " AND status = " + next(f.Status)
	}

	var count int32
	countSql := "SELECT count(*) FROM (" + sql + ") AS sub"
	if err := r.db.QueryRowContext(ctx, countSql, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	sql += " ORDER BY created_on DESC LIMIT " + next(f.PageSize) + " OFFSET " + next(pageOffset(f.Page, f.PageSize))

	rows, err := r.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var rentals []domain.Rental
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, 0, err
		}
		rentals = append(rentals, *rt)
	}
	return rentals, count, rows.Err()
}

func (r *rentalRepository) CountQualifying(ctx context.Context, customerID int32) (int, error) {
	var n int
	query := `SELECT count(*) FROM rentals WHERE customer_id = $1 AND status = ANY($2)`
	err := r.db.QueryRowContext(ctx, query, customerID, pq.Array(statusStrings(domain.QualifyingStatuses))).Scan(&n)
	return n, err
}

func (r *rentalRepository) CountOpenByVehicle(ctx context.Context, vehicleID int32) (int, error) {
	var n int
	query := `SELECT count(*) FROM rentals WHERE vehicle_id = $1 AND status = ANY($2)`
	err := r.db.QueryRowContext(ctx, query, vehicleID, pq.Array(statusStrings(domain.OpenStatuses))).Scan(&n)
	return n, err
}

func (r *rentalRepository) ListDueReservations(ctx context.Context, now time.Time) ([]int32, error) {
	query := `SELECT id FROM rentals WHERE status = $1 AND start_at <= $2 ORDER BY start_at`
	return r.listIDs(ctx, query, domain.RentalStatusReserved, now)
}

func (r *rentalRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]int32, error) {
	query := `SELECT id FROM rentals WHERE status = $1 AND planned_end_at <= $2 ORDER BY planned_end_at`
	return r.listIDs(ctx, query, domain.RentalStatusActive, now)
}

func (r *rentalRepository) listIDs(ctx context.Context, query string, args ...any) ([]int32, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func statusStrings(statuses []domain.RentalStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
