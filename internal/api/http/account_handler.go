package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"carrental-backend/internal/service"
)

// AccountHandler serves the caller's balance, ledger, promo codes and inbox.
type AccountHandler struct {
	ledgerSvc       service.LedgerService
	promoSvc        service.PromoService
	notificationSvc service.NotificationService
}

func NewAccountHandler(ledgerSvc service.LedgerService, promoSvc service.PromoService, notificationSvc service.NotificationService) *AccountHandler {
	return &AccountHandler{ledgerSvc: ledgerSvc, promoSvc: promoSvc, notificationSvc: notificationSvc}
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type redeemRequest struct {
	Code string `json:"code"`
}

func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	balance, err := h.ledgerSvc.GetBalance(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

func (h *AccountHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	page, pageSize, err := pageParams(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	entries, total, err := h.ledgerSvc.ListEntries(r.Context(), p.UserID, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(entries, total, page, pageSize))
}

func (h *AccountHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	var req amountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	entry, err := h.ledgerSvc.TopUp(r.Context(), p.UserID, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *AccountHandler) RedeemPromo(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	var req redeemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	entry, err := h.promoSvc.RedeemPromoCode(r.Context(), p.UserID, req.Code, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *AccountHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	page, pageSize, err := pageParams(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	notes, total, err := h.notificationSvc.GetNotifications(r.Context(), p.UserID, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(notes, total, page, pageSize))
}

func (h *AccountHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if err := h.notificationSvc.MarkAsRead(r.Context(), p.UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
