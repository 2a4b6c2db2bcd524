package postgres

import (
	"context"
	"fmt"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
)

const vehicleColumns = `v.id, v.make, v.model, v.year, v.registration_number, v.category, v.seats, v.transmission, v.fuel_type,
	COALESCE(v.description, ''), v.daily_rate, v.promo_rate, v.promo_ends_at, v.insurance_rate, v.premium_insurance_rate,
	v.status, v.location_id, COALESCE(v.image_key, ''), v.created_on, v.updated_on`

const effectiveRateSQL = `CASE WHEN v.promo_rate IS NOT NULL AND (v.promo_ends_at IS NULL OR v.promo_ends_at > NOW())
	THEN v.promo_rate ELSE v.daily_rate END`

type vehicleRepository struct {
	db DBTX
}

func NewVehicleRepository(db DBTX) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

func scanVehicle(row rowScanner) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	err := row.Scan(&v.ID, &v.Make, &v.Model, &v.Year, &v.RegistrationNumber, &v.Category, &v.Seats, &v.Transmission, &v.FuelType,
		&v.Description, &v.DailyRate, &v.PromoRate, &v.PromoEndsAt, &v.InsuranceRate, &v.PremiumInsuranceRate,
		&v.Status, &v.LocationID, &v.ImageKey, &v.CreatedOn, &v.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *vehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	query := `INSERT INTO vehicles (make, model, year, registration_number, category, seats, transmission, fuel_type, description,
	            daily_rate, promo_rate, promo_ends_at, insurance_rate, premium_insurance_rate, status, location_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	          RETURNING id, created_on, updated_on`
	logger.DatabaseCall("INSERT", "vehicles", "registration", v.RegistrationNumber)
	err := r.db.QueryRowContext(ctx, query, v.Make, v.Model, v.Year, v.RegistrationNumber, v.Category, v.Seats, v.Transmission, v.FuelType, v.Description,
		v.DailyRate, v.PromoRate, v.PromoEndsAt, v.InsuranceRate, v.PremiumInsuranceRate, v.Status, v.LocationID).
		Scan(&v.ID, &v.CreatedOn, &v.UpdatedOn)
	logger.DatabaseResult("INSERT", 1, err, "vehicleID", v.ID)
	return mapError(err)
}

func (r *vehicleRepository) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles v WHERE v.id = $1`
	v, err := scanVehicle(r.db.QueryRowContext(ctx, query, id))
	return v, mapError(err)
}

func (r *vehicleRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles v WHERE v.id = $1 FOR UPDATE`
	v, err := scanVehicle(r.db.QueryRowContext(ctx, query, id))
	return v, mapError(err)
}

func (r *vehicleRepository) Update(ctx context.Context, v *domain.Vehicle) error {
	query := `UPDATE vehicles SET make=$1, model=$2, year=$3, registration_number=$4, category=$5, seats=$6, transmission=$7,
	            fuel_type=$8, description=$9, daily_rate=$10, promo_rate=$11, promo_ends_at=$12, insurance_rate=$13,
	            premium_insurance_rate=$14, location_id=$15, updated_on=NOW()
	          WHERE id=$16`
	return mustAffect(r.db.ExecContext(ctx, query, v.Make, v.Model, v.Year, v.RegistrationNumber, v.Category, v.Seats, v.Transmission,
		v.FuelType, v.Description, v.DailyRate, v.PromoRate, v.PromoEndsAt, v.InsuranceRate,
		v.PremiumInsuranceRate, v.LocationID, v.ID))
}

func (r *vehicleRepository) Delete(ctx context.Context, id int32) error {
	return mustAffect(r.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = $1`, id))
}

func (r *vehicleRepository) UpdateStatus(ctx context.Context, id int32, status domain.VehicleStatus) error {
	logger.DatabaseCall("UPDATE", "vehicles.status", "vehicleID", id, "status", status)
	return mustAffect(r.db.ExecContext(ctx, `UPDATE vehicles SET status = $1, updated_on = NOW() WHERE id = $2`, status, id))
}

func (r *vehicleRepository) UpdateImage(ctx context.Context, id int32, imageKey string) error {
	return mustAffect(r.db.ExecContext(ctx, `UPDATE vehicles SET image_key = $1, updated_on = NOW() WHERE id = $2`, imageKey, id))
}

func (r *vehicleRepository) List(ctx context.Context, f domain.VehicleFilter) ([]domain.Vehicle, int32, error) {
	sql := `SELECT ` + vehicleColumns + ` FROM vehicles v LEFT JOIN locations l ON l.id = v.location_id WHERE 1=1`
	args := []any{}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		sql += " AND v.status = " + next(f.Status)
	}
	if f.LocationID != 0 {
		sql += " AND v.location_id = " + next(f.LocationID)
	}
	if f.City != "" {
		sql += " AND LOWER(l.city) = LOWER(" + next(f.City) + ")"
	}
	if f.MaxDailyRate.Valid {
		sql += " AND " + effectiveRateSQL + " <= " + next(f.MaxDailyRate.Decimal)
	}

	var count int32
	countSql := "SELECT count(*) FROM (" + sql + ") AS sub"
	if err := r.db.QueryRowContext(ctx, countSql, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	sql += " ORDER BY v.id LIMIT " + next(f.PageSize) + " OFFSET " + next(pageOffset(f.Page, f.PageSize))

	rows, err := r.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, 0, err
		}
		vehicles = append(vehicles, *v)
	}
	return vehicles, count, rows.Err()
}
