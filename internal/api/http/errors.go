package http

import (
	"errors"
	"net/http"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/security"
	"carrental-backend/internal/storage"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Type    string   `json:"type"`
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// errorStatus classifies err into an HTTP status and a stable type tag.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, storage.ErrFileNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, security.ErrExpiredToken),
		errors.Is(err, security.ErrWrongTokenType):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrAccountBlocked):
		return http.StatusForbidden, "account_blocked"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrVehicleUnavailable):
		return http.StatusUnprocessableEntity, "vehicle_unavailable"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, "insufficient_balance"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, "invalid_transition"
	case errors.Is(err, domain.ErrPromoExpired):
		return http.StatusUnprocessableEntity, "promo_expired"
	case errors.Is(err, domain.ErrPromoAlreadyUsed):
		return http.StatusUnprocessableEntity, "promo_already_used"
	case errors.Is(err, domain.ErrPromoNotAllowed):
		return http.StatusUnprocessableEntity, "promo_not_allowed"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError renders err. Internal errors are logged and their text is not
// leaked to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := errorStatus(err)
	body := ErrorResponse{Type: kind, Error: err.Error()}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Error = domain.ErrValidation.Error()
		body.Details = verr.Details
	}
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		body.Error = "internal server error"
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, r *http.Request, details ...string) {
	writeError(w, r, domain.NewValidationError(details...))
}
