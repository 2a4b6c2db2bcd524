package config

import "carrental-backend/internal/domain"

// Capability is a single permission checked at the HTTP boundary.
type Capability string

const (
	CapBookingWrite  Capability = "booking:write"
	CapAccountRead   Capability = "account:read"
	CapLedgerWrite   Capability = "ledger:write"
	CapPromoRedeem   Capability = "promo:redeem"
	CapFleetManage   Capability = "fleet:manage"
	CapReturnsReview Capability = "returns:review"
	CapRentalsAll    Capability = "rentals:all"
	CapAdminStats    Capability = "admin:stats"
	CapAdminPromo    Capability = "admin:promo"
	CapAdminUsers    Capability = "admin:users"
	CapAdminBookings Capability = "admin:bookings"
	CapAdminLocation Capability = "admin:locations"
)

var customerCapabilities = []Capability{
	CapBookingWrite,
	CapAccountRead,
	CapLedgerWrite,
	CapPromoRedeem,
}

var employeeCapabilities = append([]Capability{
	CapFleetManage,
	CapReturnsReview,
	CapRentalsAll,
}, customerCapabilities...)

var adminCapabilities = append([]Capability{
	CapAdminStats,
	CapAdminPromo,
	CapAdminUsers,
	CapAdminBookings,
	CapAdminLocation,
}, employeeCapabilities...)

// RoleCapabilities maps each role to what it may do. Roles only appear
// here; handlers ask for capabilities.
var RoleCapabilities = map[domain.Role][]Capability{
	domain.RoleCustomer: customerCapabilities,
	domain.RoleEmployee: employeeCapabilities,
	domain.RoleAdmin:    adminCapabilities,
}

// HasCapability reports whether role grants capability.
func HasCapability(role domain.Role, capability Capability) bool {
	for _, c := range RoleCapabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}
