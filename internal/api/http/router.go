package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"carrental-backend/internal/config"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth      *AuthHandler
	Users     *UserHandler
	Vehicles  *VehicleHandler
	Locations *LocationHandler
	Rentals   *RentalHandler
	Account   *AccountHandler
	Admin     *AdminHandler
}

// NewRouter mounts the REST API under /api/v1.
func NewRouter(h Handlers, auth *Authenticator, db Pinger) *mux.Router {
	root := mux.NewRouter()
	root.Use(AccessLog, Recovery)

	api := root.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.Optional)

	route := func(method, path string, fn http.HandlerFunc, caps ...config.Capability) {
		var handler http.Handler = fn
		if len(caps) > 0 {
			handler = Require(caps...)(handler)
		}
		api.Handle(path, handler).Methods(method)
	}

	// Public
	route(http.MethodGet, "/health", healthHandler(db))
	route(http.MethodPost, "/auth/register", h.Auth.Register)
	route(http.MethodPost, "/auth/login", h.Auth.Login)
	route(http.MethodPost, "/auth/refresh", h.Auth.Refresh)
	route(http.MethodGet, "/vehicles", h.Vehicles.List)
	route(http.MethodGet, "/vehicles/{id}", h.Vehicles.Get)
	route(http.MethodGet, "/locations", h.Locations.List)
	route(http.MethodGet, "/locations/{id}", h.Locations.Get)
	route(http.MethodGet, "/images/{key}", h.Vehicles.DownloadImage)

	// Customer
	route(http.MethodPost, "/quotes", h.Rentals.Quote, config.CapBookingWrite)
	route(http.MethodPost, "/rentals", h.Rentals.Book, config.CapBookingWrite)
	route(http.MethodGet, "/rentals", h.Rentals.ListMine, config.CapAccountRead)
	route(http.MethodGet, "/rentals/{id}", h.Rentals.Get, config.CapAccountRead)
	route(http.MethodPost, "/rentals/{id}/cancel", h.Rentals.Cancel, config.CapBookingWrite)
	route(http.MethodPost, "/rentals/{id}/return", h.Rentals.RequestReturn, config.CapBookingWrite)
	route(http.MethodGet, "/me", h.Auth.Me, config.CapAccountRead)
	route(http.MethodPut, "/me", h.Users.UpdateProfile, config.CapAccountRead)
	route(http.MethodGet, "/me/balance", h.Account.Balance, config.CapAccountRead)
	route(http.MethodGet, "/me/transactions", h.Account.Transactions, config.CapAccountRead)
	route(http.MethodPost, "/me/top-ups", h.Account.TopUp, config.CapLedgerWrite)
	route(http.MethodPost, "/me/promo-codes/redeem", h.Account.RedeemPromo, config.CapPromoRedeem)
	route(http.MethodGet, "/me/notifications", h.Account.Notifications, config.CapAccountRead)
	route(http.MethodPost, "/me/notifications/{id}/read", h.Account.MarkRead, config.CapAccountRead)

	// Employee
	route(http.MethodPost, "/fleet/vehicles", h.Vehicles.Create, config.CapFleetManage)
	route(http.MethodPut, "/fleet/vehicles/{id}", h.Vehicles.Update, config.CapFleetManage)
	route(http.MethodDelete, "/fleet/vehicles/{id}", h.Vehicles.Delete, config.CapFleetManage)
	route(http.MethodPut, "/fleet/vehicles/{id}/status", h.Vehicles.SetStatus, config.CapFleetManage)
	route(http.MethodPut, "/fleet/vehicles/{id}/image", h.Vehicles.UploadImage, config.CapFleetManage)
	route(http.MethodGet, "/fleet/returns", h.Rentals.ListPendingReturns, config.CapReturnsReview)
	route(http.MethodPost, "/fleet/rentals/{id}/approve-return", h.Rentals.ApproveReturn, config.CapReturnsReview)
	route(http.MethodPost, "/fleet/rentals/{id}/reject-return", h.Rentals.RejectReturn, config.CapReturnsReview)

	// Admin
	route(http.MethodGet, "/admin/stats", h.Admin.Stats, config.CapAdminStats)
	route(http.MethodGet, "/admin/rentals", h.Rentals.ListAll, config.CapAdminBookings)
	route(http.MethodPost, "/admin/rentals", h.Rentals.BookForCustomer, config.CapAdminBookings)
	route(http.MethodPost, "/admin/rentals/{id}/cancel", h.Rentals.AdminCancel, config.CapAdminBookings)
	route(http.MethodPost, "/admin/locations", h.Locations.Create, config.CapAdminLocation)
	route(http.MethodPut, "/admin/locations/{id}", h.Locations.Update, config.CapAdminLocation)
	route(http.MethodDelete, "/admin/locations/{id}", h.Locations.Delete, config.CapAdminLocation)
	route(http.MethodGet, "/admin/promo-codes", h.Admin.ListPromoCodes, config.CapAdminPromo)
	route(http.MethodPost, "/admin/promo-codes", h.Admin.CreatePromoCode, config.CapAdminPromo)
	route(http.MethodGet, "/admin/users", h.Admin.ListUsers, config.CapAdminUsers)
	route(http.MethodPut, "/admin/users/{id}/role", h.Admin.SetRole, config.CapAdminUsers)
	route(http.MethodPut, "/admin/users/{id}/block", h.Admin.SetBlocked, config.CapAdminUsers)
	route(http.MethodPost, "/admin/users/{id}/balance", h.Admin.AdjustBalance, config.CapAdminUsers)

	return root
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
