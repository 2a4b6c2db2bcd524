package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PromoCode struct {
	ID           int32           `json:"id"`
	Code         string          `json:"code"`
	Amount       decimal.Decimal `json:"amount"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
	SingleUse    bool            `json:"single_use"`
	TargetUserID *int32          `json:"target_user_id,omitempty"`
	CreatedBy    int32           `json:"created_by"`
	Redemptions  int32           `json:"redemptions"`
	CreatedOn    time.Time       `json:"created_on"`
}

func (p *PromoCode) ExpiredAt(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}
