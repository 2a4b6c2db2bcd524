package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/service"
)

type AdminHandler struct {
	adminSvc service.AdminService
	promoSvc service.PromoService
}

func NewAdminHandler(adminSvc service.AdminService, promoSvc service.PromoService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc, promoSvc: promoSvc}
}

type createPromoRequest struct {
	Code         string          `json:"code"`
	Amount       decimal.Decimal `json:"amount"`
	ExpiresAt    *time.Time      `json:"expires_at"`
	SingleUse    bool            `json:"single_use"`
	TargetUserID *int32          `json:"target_user_id"`
}

type roleRequest struct {
	Role domain.Role `json:"role"`
}

type blockRequest struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason"`
}

type adjustRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminSvc.Stats(r.Context(), time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) ListPromoCodes(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageParams(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	codes, total, err := h.promoSvc.ListPromoCodes(r.Context(), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(codes, total, page, pageSize))
}

func (h *AdminHandler) CreatePromoCode(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	var req createPromoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	promo, err := h.promoSvc.CreatePromoCode(r.Context(), p.UserID, req.Code, req.Amount, req.ExpiresAt, req.SingleUse, req.TargetUserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, promo)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageParams(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	users, total, err := h.adminSvc.ListUsers(r.Context(), r.URL.Query().Get("q"), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(users, total, page, pageSize))
}

func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	user, err := h.adminSvc.SetRole(r.Context(), p.UserID, id, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) SetBlocked(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	var req blockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	user, err := h.adminSvc.SetBlocked(r.Context(), p.UserID, id, req.Blocked, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	p := mustPrincipal(r)
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	var req adjustRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	entry, err := h.adminSvc.AdjustBalance(r.Context(), p.UserID, id, req.Amount, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}
