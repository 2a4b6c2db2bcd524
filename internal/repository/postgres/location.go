package postgres

import (
	"context"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/repository"
)

const locationColumns = `id, name, address, city, latitude, longitude, COALESCE(phone, ''), created_on, updated_on`

type locationRepository struct {
	db DBTX
}

func NewLocationRepository(db DBTX) repository.LocationRepository {
	return &locationRepository{db: db}
}

func scanLocation(row rowScanner) (*domain.Location, error) {
	l := &domain.Location{}
	if err := row.Scan(&l.ID, &l.Name, &l.Address, &l.City, &l.Latitude, &l.Longitude, &l.Phone, &l.CreatedOn, &l.UpdatedOn); err != nil {
		return nil, err
	}
	return l, nil
}

func (r *locationRepository) Create(ctx context.Context, l *domain.Location) error {
	query := `INSERT INTO locations (name, address, city, latitude, longitude, phone)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_on, updated_on`
	err := r.db.QueryRowContext(ctx, query, l.Name, l.Address, l.City, l.Latitude, l.Longitude, l.Phone).
		Scan(&l.ID, &l.CreatedOn, &l.UpdatedOn)
	return mapError(err)
}

func (r *locationRepository) GetByID(ctx context.Context, id int32) (*domain.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE id = $1`
	l, err := scanLocation(r.db.QueryRowContext(ctx, query, id))
	return l, mapError(err)
}

func (r *locationRepository) Update(ctx context.Context, l *domain.Location) error {
	query := `UPDATE locations SET name=$1, address=$2, city=$3, latitude=$4, longitude=$5, phone=$6, updated_on=NOW() WHERE id=$7`
	return mustAffect(r.db.ExecContext(ctx, query, l.Name, l.Address, l.City, l.Latitude, l.Longitude, l.Phone, l.ID))
}

func (r *locationRepository) Delete(ctx context.Context, id int32) error {
	return mustAffect(r.db.ExecContext(ctx, `DELETE FROM locations WHERE id = $1`, id))
}

func (r *locationRepository) List(ctx context.Context, city string) ([]domain.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE ($1 = '' OR LOWER(city) = LOWER($1)) ORDER BY city, name`
	rows, err := r.db.QueryContext(ctx, query, city)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []domain.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, *l)
	}
	return locations, rows.Err()
}
