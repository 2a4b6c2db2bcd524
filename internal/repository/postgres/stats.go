package postgres

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/repository"
)

// Revenue is what customers paid for rentals net of refunds. Charges are
// stored as negative ledger amounts, hence the sign flip.
const revenueExpr = `COALESCE(-SUM(amount), 0)`

type statsRepository struct {
	db DBTX
}

func NewStatsRepository(db DBTX) repository.StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) RentalsByStatus(ctx context.Context) (map[domain.RentalStatus]int32, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, count(*) FROM rentals GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.RentalStatus]int32)
	for rows.Next() {
		var status domain.RentalStatus
		var n int32
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *statsRepository) VehiclesByStatus(ctx context.Context) (map[domain.VehicleStatus]int32, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, count(*) FROM vehicles GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.VehicleStatus]int32)
	for rows.Next() {
		var status domain.VehicleStatus
		var n int32
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *statsRepository) CountCustomers(ctx context.Context) (int32, error) {
	var n int32
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users WHERE role = $1`, domain.RoleCustomer).Scan(&n)
	return n, err
}

func (r *statsRepository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT ` + revenueExpr + ` FROM ledger_entries WHERE type IN ($1, $2)`
	err := r.db.QueryRowContext(ctx, query, domain.EntryTypeRentalCharge, domain.EntryTypeRentalRefund).Scan(&total)
	return total, err
}

func (r *statsRepository) MonthlyRevenue(ctx context.Context, from time.Time) ([]domain.MonthlyRevenue, error) {
	query := `SELECT to_char(date_trunc('month', created_on AT TIME ZONE 'UTC'), 'YYYY-MM') AS month, ` + revenueExpr + `
	          FROM ledger_entries
	          WHERE type IN ($1, $2) AND created_on >= $3
	          GROUP BY month ORDER BY month`
	rows, err := r.db.QueryContext(ctx, query, domain.EntryTypeRentalCharge, domain.EntryTypeRentalRefund, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []domain.MonthlyRevenue
	for rows.Next() {
		var m domain.MonthlyRevenue
		if err := rows.Scan(&m.Month, &m.Revenue); err != nil {
			return nil, err
		}
		series = append(series, m)
	}
	return series, rows.Err()
}
