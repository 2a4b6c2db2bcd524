package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"carrental-backend/internal/domain"
)

// perKmFee is charged for every estimated road kilometre between the
// pickup and return points.
var perKmFee = decimal.NewFromInt(2)

type QuoteInput struct {
	Vehicle           *domain.Vehicle
	Origin            *domain.Location
	Destination       *domain.Location
	StartAt           time.Time
	PlannedEndAt      time.Time
	PremiumInsurance  bool
	QualifyingRentals int
}

// Breakdown is a priced rental. Money fields are rounded to 2 places.
type Breakdown struct {
	Days             int             `json:"days"`
	DailyRate        decimal.Decimal `json:"daily_rate"`
	PromoApplied     bool            `json:"promo_applied"`
	InsuranceRate    decimal.Decimal `json:"insurance_rate"`
	PremiumInsurance bool            `json:"premium_insurance"`
	DistanceKm       decimal.Decimal `json:"distance_km"`
	DistanceFee      decimal.Decimal `json:"distance_fee"`
	BasePrice        decimal.Decimal `json:"base_price"`
	InsurancePrice   decimal.Decimal `json:"insurance_price"`
	LoyaltyOrdinal   int             `json:"loyalty_ordinal"`
	DiscountRate     decimal.Decimal `json:"discount_rate"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	TotalPrice       decimal.Decimal `json:"total_price"`
}

// Days returns the billable whole calendar days between start and planned
// end, never less than one. Days are counted on the wall clock of start's
// location, so a daylight-saving change does not shorten or add a day.
func Days(start, plannedEnd time.Time) int {
	end := plannedEnd.In(start.Location())
	y1, m1, d1 := start.Date()
	y2, m2, d2 := end.Date()
	days := int(time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC).Sub(time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)) / (24 * time.Hour))
	if clockOf(end) < clockOf(start) {
		days--
	}
	if days < 1 {
		return 1
	}
	return days
}

func clockOf(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
}

// Calculate prices a rental. It reads no clock: the promotion window is
// judged against in.StartAt, so equal inputs always give equal output.
// Date ordering is the caller's concern.
func Calculate(in QuoteInput) (*Breakdown, error) {
	v := in.Vehicle
	if v == nil {
		return nil, domain.NewValidationError("vehicle is required")
	}
	if in.PremiumInsurance && !v.PremiumInsuranceRate.Valid {
		return nil, domain.NewValidationError("premium insurance is not offered for this vehicle")
	}

	days := Days(in.StartAt, in.PlannedEndAt)
	dayCount := decimal.NewFromInt(int64(days))

	dailyRate := v.DailyRate
	promo := v.PromoActiveAt(in.StartAt)
	if promo {
		dailyRate = v.PromoRate.Decimal
	}
	base := dailyRate.Mul(dayCount)

	insuranceRate := v.InsuranceRate
	if in.PremiumInsurance {
		insuranceRate = v.PremiumInsuranceRate.Decimal
	}
	insurance := insuranceRate.Mul(dayCount)

	distance := DistanceKm(in.Origin, in.Destination)
	distanceFee := distance.Mul(perKmFee)

	ordinal := in.QualifyingRentals + 1
	discountRate := LoyaltyRate(ordinal)
	discount := base.Mul(discountRate)

	total := base.Add(insurance).Add(distanceFee).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return &Breakdown{
		Days:             days,
		DailyRate:        dailyRate.Round(2),
		PromoApplied:     promo,
		InsuranceRate:    insuranceRate.Round(2),
		PremiumInsurance: in.PremiumInsurance,
		DistanceKm:       distance,
		DistanceFee:      distanceFee.Round(2),
		BasePrice:        base.Round(2),
		InsurancePrice:   insurance.Round(2),
		LoyaltyOrdinal:   ordinal,
		DiscountRate:     discountRate,
		DiscountAmount:   discount.Round(2),
		TotalPrice:       total.Round(2),
	}, nil
}
