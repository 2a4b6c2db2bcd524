package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"carrental-backend/internal/domain"
)

// refundCeiling caps the prorated refund; the remaining 20% of the unused
// time is kept as an early-termination penalty.
var refundCeiling = decimal.RequireFromString("0.80")

// Refund computes what a customer gets back when rental r is terminated at now.
func Refund(r *domain.Rental, now time.Time) decimal.Decimal {
	if r.Status == domain.RentalStatusReserved || now.Before(r.StartAt) {
		return r.TotalPrice.Round(2)
	}
	if r.Status != domain.RentalStatusActive {
		return decimal.Zero
	}

	planned := int64(r.PlannedEndAt.Sub(r.StartAt) / time.Hour)
	if planned < 1 {
		planned = 1
	}
	elapsed := int64(now.Sub(r.StartAt) / time.Hour)
	if elapsed >= planned {
		return decimal.Zero
	}

	remaining := decimal.NewFromInt(planned - elapsed)
	return r.TotalPrice.
		Mul(remaining).
		Div(decimal.NewFromInt(planned)).
		Mul(refundCeiling).
		Round(2)
}
