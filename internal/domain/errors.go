package domain

import (
	"errors"
	"strings"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountBlocked      = errors.New("account is blocked")
	ErrVehicleUnavailable  = errors.New("vehicle is not available")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidTransition   = errors.New("illegal rental status transition")
	ErrPromoExpired        = errors.New("promo code has expired")
	ErrPromoAlreadyUsed    = errors.New("promo code already used")
	ErrPromoNotAllowed     = errors.New("promo code is not assigned to this customer")
)

// ValidationError carries field-level problems found before any state change.
type ValidationError struct {
	Details []string
}

func NewValidationError(details ...string) error {
	return &ValidationError{Details: details}
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(e.Details, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
