package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RentalStatus string

const (
	RentalStatusReserved      RentalStatus = "reserved"
	RentalStatusActive        RentalStatus = "active"
	RentalStatusPendingReturn RentalStatus = "pending_return"
	RentalStatusCompleted     RentalStatus = "completed"
	RentalStatusEarlyReturn   RentalStatus = "early_return"
	RentalStatusCancelled     RentalStatus = "cancelled"
)

// AllowedTransitions lists every legal status change of a rental.
var AllowedTransitions = map[RentalStatus][]RentalStatus{
	RentalStatusReserved: {
		RentalStatusActive,
		RentalStatusCancelled,
	},
	RentalStatusActive: {
		RentalStatusPendingReturn,
		RentalStatusCompleted,
		RentalStatusEarlyReturn,
		RentalStatusCancelled,
	},
	RentalStatusPendingReturn: {
		RentalStatusCompleted,
		RentalStatusActive,
	},
}

func CanTransition(from, to RentalStatus) bool {
	for _, next := range AllowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// QualifyingStatuses count toward a customer's loyalty ordinal.
var QualifyingStatuses = []RentalStatus{
	RentalStatusCompleted,
	RentalStatusActive,
	RentalStatusEarlyReturn,
}

// OpenStatuses hold the vehicle; at most one open rental exists per vehicle.
var OpenStatuses = []RentalStatus{
	RentalStatusReserved,
	RentalStatusActive,
	RentalStatusPendingReturn,
}

func (s RentalStatus) Valid() bool {
	switch s {
	case RentalStatusReserved, RentalStatusActive, RentalStatusPendingReturn,
		RentalStatusCompleted, RentalStatusEarlyReturn, RentalStatusCancelled:
		return true
	}
	return false
}

type TerminationMode string

const (
	TerminationCancel        TerminationMode = "cancel"
	TerminationEarlyReturn   TerminationMode = "early_return"
	TerminationRequestReturn TerminationMode = "request_return"
	TerminationApproveReturn TerminationMode = "approve_return"
	TerminationRejectReturn  TerminationMode = "reject_return"
)

type Rental struct {
	ID                    int32           `json:"id"`
	CustomerID            int32           `json:"customer_id"`
	VehicleID             int32           `json:"vehicle_id"`
	OriginLocationID      int32           `json:"origin_location_id"`
	DestinationLocationID int32           `json:"destination_location_id"`
	StartAt               time.Time       `json:"start_at"`
	PlannedEndAt          time.Time       `json:"planned_end_at"`
	ActualEndAt           *time.Time      `json:"actual_end_at,omitempty"`
	Days                  int             `json:"days"`
	DistanceKm            decimal.Decimal `json:"distance_km"`
	DistanceFee           decimal.Decimal `json:"distance_fee"`
	BasePrice             decimal.Decimal `json:"base_price"`
	InsurancePrice        decimal.Decimal `json:"insurance_price"`
	PremiumInsurance      bool            `json:"premium_insurance"`
	DiscountAmount        decimal.Decimal `json:"discount_amount"`
	TotalPrice            decimal.Decimal `json:"total_price"`
	RefundAmount          decimal.Decimal `json:"refund_amount"`
	Status                RentalStatus    `json:"status"`
	LoyaltyCount          int             `json:"loyalty_count"`
	Notes                 string          `json:"notes,omitempty"`
	CancellationReason    string          `json:"cancellation_reason,omitempty"`
	CreatedBy             int32           `json:"created_by"`
	CreatedOn             time.Time       `json:"created_on"`
	UpdatedOn             time.Time       `json:"updated_on"`
}

type RentalFilter struct {
	CustomerID int32
	Status     RentalStatus
	Page       int32
	PageSize   int32
}
