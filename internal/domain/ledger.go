package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryTypeRentalCharge EntryType = "rental_charge"
	EntryTypeRentalRefund EntryType = "rental_refund"
	EntryTypeTopUp        EntryType = "top_up"
	EntryTypePromoCredit  EntryType = "promo_credit"
	EntryTypeAdjustment   EntryType = "adjustment"
)

// LedgerEntry is an immutable balance movement. Amount is signed (negative
// for debits) and BalanceAfter is the customer's balance once it was applied.
type LedgerEntry struct {
	ID           int32           `json:"id"`
	UserID       int32           `json:"user_id"`
	RentalID     *int32          `json:"rental_id,omitempty"`
	Type         EntryType       `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Description  string          `json:"description"`
	CreatedOn    time.Time       `json:"created_on"`
}
