package postgres

import (
	"context"
	"time"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/repository"
)

const promoColumns = `p.id, p.code, p.amount, p.expires_at, p.single_use, p.target_user_id, p.created_by,
	(SELECT count(*) FROM promo_redemptions pr WHERE pr.promo_code_id = p.id), p.created_on`

type promoRepository struct {
	db DBTX
}

func NewPromoRepository(db DBTX) repository.PromoRepository {
	return &promoRepository{db: db}
}

func scanPromo(row rowScanner) (*domain.PromoCode, error) {
	p := &domain.PromoCode{}
	if err := row.Scan(&p.ID, &p.Code, &p.Amount, &p.ExpiresAt, &p.SingleUse, &p.TargetUserID, &p.CreatedBy, &p.Redemptions, &p.CreatedOn); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *promoRepository) Create(ctx context.Context, p *domain.PromoCode) error {
	query := `INSERT INTO promo_codes (code, amount, expires_at, single_use, target_user_id, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_on`
	err := r.db.QueryRowContext(ctx, query, p.Code, p.Amount, p.ExpiresAt, p.SingleUse, p.TargetUserID, p.CreatedBy).
		Scan(&p.ID, &p.CreatedOn)
	return mapError(err)
}

// GetByCodeForUpdate locks the promo row so concurrent redemptions of the
// same code are serialized.
func (r *promoRepository) GetByCodeForUpdate(ctx context.Context, code string) (*domain.PromoCode, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes p WHERE p.code = $1 FOR UPDATE`
	p, err := scanPromo(r.db.QueryRowContext(ctx, query, code))
	return p, mapError(err)
}

func (r *promoRepository) List(ctx context.Context, page, pageSize int32) ([]domain.PromoCode, int32, error) {
	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM promo_codes`).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + promoColumns + ` FROM promo_codes p ORDER BY p.created_on DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, pageSize, pageOffset(page, pageSize))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var promos []domain.PromoCode
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, 0, err
		}
		promos = append(promos, *p)
	}
	return promos, count, rows.Err()
}

func (r *promoRepository) HasRedeemed(ctx context.Context, promoID, userID int32) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM promo_redemptions WHERE promo_code_id = $1 AND user_id = $2)`
	err := r.db.QueryRowContext(ctx, query, promoID, userID).Scan(&exists)
	return exists, err
}

func (r *promoRepository) CreateRedemption(ctx context.Context, promoID, userID int32, at time.Time) error {
	query := `INSERT INTO promo_redemptions (promo_code_id, user_id, redeemed_on) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, promoID, userID, at)
	if isUniqueViolation(err) {
		return domain.ErrPromoAlreadyUsed
	}
	return mapError(err)
}
