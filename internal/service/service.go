package service

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/pricing"
)

type AuthService interface {
	Register(ctx context.Context, email, password, firstName, lastName, phone string) (*domain.User, string, string, error) // user, access, refresh
	Login(ctx context.Context, email, password string) (*domain.User, string, string, error)
	RefreshToken(ctx context.Context, refresh string) (string, string, error)
	GetProfile(ctx context.Context, userID int32) (*domain.User, error)
}

type UserService interface {
	UpdateProfile(ctx context.Context, userID int32, firstName, lastName, phone string) (*domain.User, error)
}

type VehicleService interface {
	ListVehicles(ctx context.Context, filter domain.VehicleFilter) ([]domain.Vehicle, int32, error)
	GetVehicle(ctx context.Context, id int32) (*domain.Vehicle, error)
	CreateVehicle(ctx context.Context, vehicle *domain.Vehicle) error
	UpdateVehicle(ctx context.Context, vehicle *domain.Vehicle) error
	DeleteVehicle(ctx context.Context, id int32) error
	SetStatus(ctx context.Context, id int32, status domain.VehicleStatus) (*domain.Vehicle, error)
}

type ImageStorageService interface {
	UploadImage(ctx context.Context, vehicleID int32, contentType string, body io.Reader) (*domain.Vehicle, error)
	OpenImage(ctx context.Context, key string) (io.ReadCloser, string, error) // content, content type
}

type LocationService interface {
	ListLocations(ctx context.Context, city string) ([]domain.Location, error)
	GetLocation(ctx context.Context, id int32) (*domain.Location, error)
	CreateLocation(ctx context.Context, loc *domain.Location) error
	UpdateLocation(ctx context.Context, loc *domain.Location) error
	DeleteLocation(ctx context.Context, id int32) error
}

type RentalService interface {
	Quote(ctx context.Context, req QuoteRequest) (*pricing.Breakdown, error)
	ConfirmBooking(ctx context.Context, req BookingRequest) (*domain.Rental, error)
	Terminate(ctx context.Context, cmd TerminateCommand) (*domain.Rental, error)
	GetRental(ctx context.Context, actorID int32, privileged bool, rentalID int32) (*domain.Rental, error)
	ListRentals(ctx context.Context, filter domain.RentalFilter) ([]domain.Rental, int32, error)
	SweepExpiredAndDueRentals(ctx context.Context, now time.Time) (SweepResult, error)
}

type LedgerService interface {
	GetBalance(ctx context.Context, userID int32) (decimal.Decimal, error)
	ListEntries(ctx context.Context, userID int32, page, pageSize int32) ([]domain.LedgerEntry, int32, error)
	TopUp(ctx context.Context, userID int32, amount decimal.Decimal) (*domain.LedgerEntry, error)
}

type PromoService interface {
	CreatePromoCode(ctx context.Context, adminID int32, code string, amount decimal.Decimal, expiresAt *time.Time, singleUse bool, targetUserID *int32) (*domain.PromoCode, error)
	ListPromoCodes(ctx context.Context, page, pageSize int32) ([]domain.PromoCode, int32, error)
	RedeemPromoCode(ctx context.Context, userID int32, code string, now time.Time) (*domain.LedgerEntry, error)
}

type AdminService interface {
	Stats(ctx context.Context, now time.Time) (*domain.DashboardStats, error)
	ListUsers(ctx context.Context, query string, page, pageSize int32) ([]domain.User, int32, error)
	SetRole(ctx context.Context, adminID, userID int32, role domain.Role) (*domain.User, error)
	SetBlocked(ctx context.Context, adminID, userID int32, blocked bool, reason string) (*domain.User, error)
	AdjustBalance(ctx context.Context, adminID, userID int32, amount decimal.Decimal, note string) (*domain.LedgerEntry, error)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID, notificationID int32) error
	Notify(ctx context.Context, userID int32, title, message string, attrs map[string]string)
}

type EmailService interface {
	SendBookingConfirmation(ctx context.Context, to *domain.User, rental *domain.Rental, vehicle *domain.Vehicle) error
	SendCancellationNotice(ctx context.Context, to *domain.User, rental *domain.Rental, vehicle *domain.Vehicle) error
	SendReturnDecision(ctx context.Context, to *domain.User, rental *domain.Rental, approved bool, reason string) error
}

// QuoteRequest prices a prospective rental without touching any state.
type QuoteRequest struct {
	CustomerID            int32
	VehicleID             int32
	OriginLocationID      int32
	DestinationLocationID int32
	StartAt               time.Time
	PlannedEndAt          time.Time
	PremiumInsurance      bool
}

// BookingRequest confirms a rental. CreatedBy differs from CustomerID when
// staff book on a customer's behalf. Now is the decision instant.
type BookingRequest struct {
	QuoteRequest
	CreatedBy int32
	Notes     string
	Now       time.Time
}

// TerminateCommand drives one lifecycle transition on an existing rental.
// Privileged actors may act on any rental and review returns.
type TerminateCommand struct {
	RentalID   int32
	ActorID    int32
	Privileged bool
	Mode       domain.TerminationMode
	Reason     string
	Now        time.Time
}

type SweepResult struct {
	Activated int `json:"activated"`
	Completed int `json:"completed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}
