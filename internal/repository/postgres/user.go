package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
)

const userColumns = `id, email, password_hash, first_name, last_name, phone, role, balance, blocked, COALESCE(blocked_reason, ''), created_on, updated_on`

type userRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) repository.UserRepository {
	return &userRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &u.Role, &u.Balance, &u.Blocked, &u.BlockedReason, &u.CreatedOn, &u.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (email, password_hash, first_name, last_name, phone, role, balance)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_on, updated_on`
	logger.DatabaseCall("INSERT", "users", "email", u.Email)
	err := r.db.QueryRowContext(ctx, query, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone, u.Role, u.Balance).
		Scan(&u.ID, &u.CreatedOn, &u.UpdatedOn)
	logger.DatabaseResult("INSERT", 1, err, "userID", u.ID)
	return mapError(err)
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	return u, mapError(err)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	return u, mapError(err)
}

func (r *userRepository) GetForUpdate(ctx context.Context, id int32) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	return u, mapError(err)
}

func (r *userRepository) UpdateBalance(ctx context.Context, id int32, balance decimal.Decimal) error {
	query := `UPDATE users SET balance = $1, updated_on = NOW() WHERE id = $2`
	logger.DatabaseCall("UPDATE", "users.balance", "userID", id)
	return mustAffect(r.db.ExecContext(ctx, query, balance, id))
}

func (r *userRepository) UpdateRole(ctx context.Context, id int32, role domain.Role) error {
	query := `UPDATE users SET role = $1, updated_on = NOW() WHERE id = $2`
	return mustAffect(r.db.ExecContext(ctx, query, role, id))
}

func (r *userRepository) UpdateBlocked(ctx context.Context, id int32, blocked bool, reason string) error {
	query := `UPDATE users SET blocked = $1, blocked_reason = NULLIF($2, ''), updated_on = NOW() WHERE id = $3`
	return mustAffect(r.db.ExecContext(ctx, query, blocked, reason, id))
}

func (r *userRepository) UpdateProfile(ctx context.Context, id int32, firstName, lastName, phone string) error {
	query := `UPDATE users SET first_name = $1, last_name = $2, phone = $3, updated_on = NOW() WHERE id = $4`
	logger.DatabaseCall("UPDATE", "users", "userID", id)
	return mustAffect(r.db.ExecContext(ctx, query, firstName, lastName, phone, id))
}

func (r *userRepository) List(ctx context.Context, query string, page, pageSize int32) ([]domain.User, int32, error) {
	sql := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	argIdx := 1
	if query != "" {
		sql += ` WHERE email ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1`
		args = append(args, "%"+query+"%")
		argIdx++
	}

	var count int32
	countSql := "SELECT count(*) FROM (" + sql + ") AS sub"
	if err := r.db.QueryRowContext(ctx, countSql, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	sql += fmt.Sprintf(" ORDER BY id LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, pageSize, pageOffset(page, pageSize))

	rows, err := r.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, count, rows.Err()
}
