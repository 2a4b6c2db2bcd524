package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"carrental-backend/internal/domain"
)

const (
	earthRadiusKm = 6371.0
	roadFactor    = 1.2
)

// DistanceKm estimates the driving distance between two rental points as the
// great-circle distance inflated by a fixed road factor. Zero when either point
// has no coordinates.
func DistanceKm(origin, destination *domain.Location) decimal.Decimal {
	if !origin.HasCoordinates() || !destination.HasCoordinates() {
		return decimal.Zero
	}
	km := haversineKm(*origin.Latitude, *origin.Longitude, *destination.Latitude, *destination.Longitude)
	return decimal.NewFromFloat(km * roadFactor).Round(2)
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
