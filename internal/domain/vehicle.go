package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "available"
	VehicleStatusRented      VehicleStatus = "rented"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
	VehicleStatusReserved    VehicleStatus = "reserved"
)

func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleStatusAvailable, VehicleStatusRented, VehicleStatusMaintenance, VehicleStatusReserved:
		return true
	}
	return false
}

type Vehicle struct {
	ID                   int32               `json:"id"`
	Make                 string              `json:"make"`
	Model                string              `json:"model"`
	Year                 int32               `json:"year"`
	RegistrationNumber   string              `json:"registration_number"`
	Category             string              `json:"category"`
	Seats                int32               `json:"seats"`
	Transmission         string              `json:"transmission"`
	FuelType             string              `json:"fuel_type"`
	Description          string              `json:"description"`
	DailyRate            decimal.Decimal     `json:"daily_rate"`
	PromoRate            decimal.NullDecimal `json:"promo_rate"`
	PromoEndsAt          *time.Time          `json:"promo_ends_at,omitempty"`
	InsuranceRate        decimal.Decimal     `json:"insurance_rate"`
	PremiumInsuranceRate decimal.NullDecimal `json:"premium_insurance_rate"`
	Status               VehicleStatus       `json:"status"`
	LocationID           *int32              `json:"location_id,omitempty"`
	ImageKey             string              `json:"image_key,omitempty"`
	CreatedOn            time.Time           `json:"created_on"`
	UpdatedOn            time.Time           `json:"updated_on"`
}

// PromoActiveAt reports whether the promotional rate applies to a rental starting at t.
func (v *Vehicle) PromoActiveAt(t time.Time) bool {
	if !v.PromoRate.Valid {
		return false
	}
	return v.PromoEndsAt == nil || t.Before(*v.PromoEndsAt)
}

// Validate checks the pricing invariants of a vehicle record.
func (v *Vehicle) Validate() error {
	var details []string
	if v.Make == "" || v.Model == "" {
		details = append(details, "make and model are required")
	}
	if v.RegistrationNumber == "" {
		details = append(details, "registration_number is required")
	}
	if !v.DailyRate.IsPositive() {
		details = append(details, "daily_rate must be greater than 0")
	}
	if v.PromoRate.Valid {
		if !v.PromoRate.Decimal.IsPositive() {
			details = append(details, "promo_rate must be greater than 0")
		}
		if v.PromoRate.Decimal.GreaterThanOrEqual(v.DailyRate) {
			details = append(details, "promo_rate must be lower than daily_rate")
		}
	}
	if v.InsuranceRate.IsNegative() {
		details = append(details, "insurance_rate must not be negative")
	}
	if v.PremiumInsuranceRate.Valid && v.PremiumInsuranceRate.Decimal.LessThanOrEqual(v.InsuranceRate) {
		details = append(details, "premium_insurance_rate must be greater than insurance_rate")
	}
	if v.Status != "" && !v.Status.Valid() {
		details = append(details, "unknown vehicle status")
	}
	if len(details) > 0 {
		return NewValidationError(details...)
	}
	return nil
}

type VehicleFilter struct {
	Status       VehicleStatus
	City         string
	LocationID   int32
	MaxDailyRate decimal.NullDecimal
	Page         int32
	PageSize     int32
}
