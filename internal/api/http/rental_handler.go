package http

import (
	"net/http"
	"strconv"
	"time"

	"carrental-backend/internal/config"
	"carrental-backend/internal/domain"
	"carrental-backend/internal/service"
)

type RentalHandler struct {
	rentalSvc service.RentalService
}

func NewRentalHandler(rentalSvc service.RentalService) *RentalHandler {
	return &RentalHandler{rentalSvc: rentalSvc}
}

type quoteRequest struct {
	CustomerID            int32     `json:"customer_id,omitempty"`
	VehicleID             int32     `json:"vehicle_id"`
	OriginLocationID      int32     `json:"origin_location_id"`
	DestinationLocationID int32     `json:"destination_location_id"`
	StartAt               time.Time `json:"start_at"`
	PlannedEndAt          time.Time `json:"planned_end_at"`
	PremiumInsurance      bool      `json:"premium_insurance"`
	Notes                 string    `json:"notes,omitempty"`
}

func (req quoteRequest) toQuote(customerID int32) service.QuoteRequest {
	return service.QuoteRequest{
		CustomerID:            customerID,
		VehicleID:             req.VehicleID,
		OriginLocationID:      req.OriginLocationID,
		DestinationLocationID: req.DestinationLocationID,
		StartAt:               req.StartAt,
		PlannedEndAt:          req.PlannedEndAt,
		PremiumInsurance:      req.PremiumInsurance,
	}
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *RentalHandler) Quote(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	breakdown, err := h.rentalSvc.Quote(r.Context(), req.toQuote(p.UserID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

// Book confirms a rental for the caller.
func (h *RentalHandler) Book(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	h.book(w, r, req, p.UserID, p.UserID)
}

// BookForCustomer is the back-office booking; customer_id names the renter.
func (h *RentalHandler) BookForCustomer(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if req.CustomerID <= 0 {
		badRequest(w, r, "customer_id is required")
		return
	}
	h.book(w, r, req, req.CustomerID, p.UserID)
}

func (h *RentalHandler) book(w http.ResponseWriter, r *http.Request, req quoteRequest, customerID, createdBy int32) {
	rental, err := h.rentalSvc.ConfirmBooking(r.Context(), service.BookingRequest{
		QuoteRequest: req.toQuote(customerID),
		CreatedBy:    createdBy,
		Notes:        req.Notes,
		Now:          time.Now(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rental)
}

// ListMine lists the caller's own rentals.
func (h *RentalHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	h.list(w, r, domain.RentalFilter{CustomerID: p.UserID, Status: domain.RentalStatus(r.URL.Query().Get("status"))})
}

// ListAll lists every rental; ?customer_id= narrows it down.
func (h *RentalHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	filter := domain.RentalFilter{Status: domain.RentalStatus(r.URL.Query().Get("status"))}
	if v := r.URL.Query().Get("customer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			badRequest(w, r, "customer_id must be an integer")
			return
		}
		filter.CustomerID = int32(id)
	}
	h.list(w, r, filter)
}

// ListPendingReturns is the employee review queue.
func (h *RentalHandler) ListPendingReturns(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, domain.RentalFilter{Status: domain.RentalStatusPendingReturn})
}

func (h *RentalHandler) list(w http.ResponseWriter, r *http.Request, filter domain.RentalFilter) {
	page, pageSize, err := pageParams(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	filter.Page, filter.PageSize = page, pageSize
	rentals, total, err := h.rentalSvc.ListRentals(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(rentals, total, page, pageSize))
}

func (h *RentalHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	rental, err := h.rentalSvc.GetRental(r.Context(), p.UserID, p.Can(config.CapRentalsAll), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}

// Cancel closes a reserved rental, or an active one as an early return.
func (h *RentalHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.terminate(w, r, domain.TerminationCancel, false)
}

// AdminCancel cancels any customer's rental.
func (h *RentalHandler) AdminCancel(w http.ResponseWriter, r *http.Request) {
	h.terminate(w, r, domain.TerminationCancel, true)
}

func (h *RentalHandler) RequestReturn(w http.ResponseWriter, r *http.Request) {
	h.terminate(w, r, domain.TerminationRequestReturn, false)
}

func (h *RentalHandler) ApproveReturn(w http.ResponseWriter, r *http.Request) {
	h.terminate(w, r, domain.TerminationApproveReturn, true)
}

func (h *RentalHandler) RejectReturn(w http.ResponseWriter, r *http.Request) {
	h.terminate(w, r, domain.TerminationRejectReturn, true)
}

func (h *RentalHandler) terminate(w http.ResponseWriter, r *http.Request, mode domain.TerminationMode, privileged bool) {
	p := mustPrincipal(r)
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	var req reasonRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			badRequest(w, r, err.Error())
			return
		}
	}
	rental, err := h.rentalSvc.Terminate(r.Context(), service.TerminateCommand{
		RentalID:   id,
		ActorID:    p.UserID,
		Privileged: privileged,
		Mode:       mode,
		Reason:     req.Reason,
		Now:        time.Now(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rental)
}
