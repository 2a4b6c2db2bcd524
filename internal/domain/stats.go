package domain

import "github.com/shopspring/decimal"

type MonthlyRevenue struct {
	Month   string          `json:"month"` // YYYY-MM
	Revenue decimal.Decimal `json:"revenue"`
}

type DashboardStats struct {
	RentalsByStatus  map[RentalStatus]int32  `json:"rentals_by_status"`
	VehiclesByStatus map[VehicleStatus]int32 `json:"vehicles_by_status"`
	Customers        int32                   `json:"customers"`
	Revenue          decimal.Decimal         `json:"revenue"`
	MonthlyRevenue   []MonthlyRevenue        `json:"monthly_revenue"`
}
