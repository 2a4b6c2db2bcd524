package postgres

import (
	"context"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
)

type ledgerRepository struct {
	db DBTX
}

func NewLedgerRepository(db DBTX) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Create(ctx context.Context, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (user_id, rental_id, type, amount, balance_after, description)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_on`
	logger.DatabaseCall("INSERT", "ledger_entries", "userID", e.UserID, "type", e.Type)
	err := r.db.QueryRowContext(ctx, query, e.UserID, e.RentalID, e.Type, e.Amount, e.BalanceAfter, e.Description).
		Scan(&e.ID, &e.CreatedOn)
	logger.DatabaseResult("INSERT", 1, err, "entryID", e.ID)
	return mapError(err)
}

func (r *ledgerRepository) List(ctx context.Context, userID int32, page, pageSize int32) ([]domain.LedgerEntry, int32, error) {
	var count int32
	countQuery := `SELECT count(*) FROM ledger_entries WHERE user_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, user_id, rental_id, type, amount, balance_after, COALESCE(description, ''), created_on
	          FROM ledger_entries WHERE user_id = $1 ORDER BY created_on DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, pageSize, pageOffset(page, pageSize))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.RentalID, &e.Type, &e.Amount, &e.BalanceAfter, &e.Description, &e.CreatedOn); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, count, rows.Err()
}
