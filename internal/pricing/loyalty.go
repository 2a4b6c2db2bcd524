package pricing

import "github.com/shopspring/decimal"

var (
	loyaltyRate15th = decimal.RequireFromString("0.20")
	loyaltyRate10th = decimal.RequireFromString("0.15")
	loyaltyRate5th  = decimal.RequireFromString("0.10")
)

// LoyaltyRate returns the discount rate for a customer's Nth qualifying
// rental. Milestones are checked most specific first, so the 30th rental
// earns 20% rather than 15% or 10%.
func LoyaltyRate(ordinal int) decimal.Decimal {
	switch {
	case ordinal < 1:
		return decimal.Zero
	case ordinal%15 == 0:
		return loyaltyRate15th
	case ordinal%10 == 0:
		return loyaltyRate10th
	case ordinal%5 == 0:
		return loyaltyRate5th
	default:
		return decimal.Zero
	}
}

func LoyaltyDiscount(ordinal int, base decimal.Decimal) decimal.Decimal {
	return base.Mul(LoyaltyRate(ordinal))
}
