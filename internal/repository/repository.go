package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"carrental-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetForUpdate locks the user row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int32) (*domain.User, error)
	UpdateBalance(ctx context.Context, id int32, balance decimal.Decimal) error
	UpdateRole(ctx context.Context, id int32, role domain.Role) error
	UpdateBlocked(ctx context.Context, id int32, blocked bool, reason string) error
	UpdateProfile(ctx context.Context, id int32, firstName, lastName, phone string) error
	List(ctx context.Context, query string, page, pageSize int32) ([]domain.User, int32, error)
}

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *domain.Vehicle) error
	GetByID(ctx context.Context, id int32) (*domain.Vehicle, error)
	GetForUpdate(ctx context.Context, id int32) (*domain.Vehicle, error)
	Update(ctx context.Context, vehicle *domain.Vehicle) error
	Delete(ctx context.Context, id int32) error
	UpdateStatus(ctx context.Context, id int32, status domain.VehicleStatus) error
	UpdateImage(ctx context.Context, id int32, imageKey string) error
	List(ctx context.Context, filter domain.VehicleFilter) ([]domain.Vehicle, int32, error)
}

type LocationRepository interface {
	Create(ctx context.Context, loc *domain.Location) error
	GetByID(ctx context.Context, id int32) (*domain.Location, error)
	Update(ctx context.Context, loc *domain.Location) error
	Delete(ctx context.Context, id int32) error
	List(ctx context.Context, city string) ([]domain.Location, error)
}

type RentalRepository interface {
	Create(ctx context.Context, rental *domain.Rental) error
	GetByID(ctx context.Context, id int32) (*domain.Rental, error)
	GetForUpdate(ctx context.Context, id int32) (*domain.Rental, error)
	Update(ctx context.Context, rental *domain.Rental) error
	List(ctx context.Context, filter domain.RentalFilter) ([]domain.Rental, int32, error)
	CountQualifying(ctx context.Context, customerID int32) (int, error)
	CountOpenByVehicle(ctx context.Context, vehicleID int32) (int, error)
	ListDueReservations(ctx context.Context, now time.Time) ([]int32, error)
	ListExpiredActive(ctx context.Context, now time.Time) ([]int32, error)
}

type LedgerRepository interface {
	Create(ctx context.Context, entry *domain.LedgerEntry) error
	List(ctx context.Context, userID int32, page, pageSize int32) ([]domain.LedgerEntry, int32, error)
}

type PromoRepository interface {
	Create(ctx context.Context, promo *domain.PromoCode) error
	GetByCodeForUpdate(ctx context.Context, code string) (*domain.PromoCode, error)
	List(ctx context.Context, page, pageSize int32) ([]domain.PromoCode, int32, error)
	HasRedeemed(ctx context.Context, promoID, userID int32) (bool, error)
	CreateRedemption(ctx context.Context, promoID, userID int32, at time.Time) error
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID int32, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID int32) error
}

type StatsRepository interface {
	RentalsByStatus(ctx context.Context) (map[domain.RentalStatus]int32, error)
	VehiclesByStatus(ctx context.Context) (map[domain.VehicleStatus]int32, error)
	CountCustomers(ctx context.Context) (int32, error)
	Revenue(ctx context.Context) (decimal.Decimal, error)
	MonthlyRevenue(ctx context.Context, from time.Time) ([]domain.MonthlyRevenue, error)
}

// Repositories is the set of repositories bound to one unit of work.
type Repositories struct {
	Users         UserRepository
	Vehicles      VehicleRepository
	Locations     LocationRepository
	Rentals       RentalRepository
	Ledger        LedgerRepository
	Promos        PromoRepository
	Notifications NotificationRepository
}

// Transactor runs fn inside a database transaction. The transaction commits
// only when fn returns nil.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
