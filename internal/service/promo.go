package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
)

var promoCodePattern = regexp.MustCompile(`^[A-Z0-9_-]{3,32}$`)

type promoService struct {
	tx        repository.Transactor
	promoRepo repository.PromoRepository
}

func NewPromoService(tx repository.Transactor, promoRepo repository.PromoRepository) PromoService {
	return &promoService{
		tx:        tx,
		promoRepo: promoRepo,
	}
}

func (s *promoService) CreatePromoCode(ctx context.Context, adminID int32, code string, amount decimal.Decimal,
	expiresAt *time.Time, singleUse bool, targetUserID *int32) (*domain.PromoCode, error) {
	code = normalizePromoCode(code)
	logger.EnterMethod("promoService.CreatePromoCode", "adminID", adminID, "code", code)

	var details []string
	if !promoCodePattern.MatchString(code) {
		details = append(details, "code must be 3-32 letters, digits, '-' or '_'")
	}
	if !amount.IsPositive() {
		details = append(details, "amount must be greater than zero")
	}
	if len(details) > 0 {
		err := domain.NewValidationError(details...)
		logger.ExitMethodWithError("promoService.CreatePromoCode", err)
		return nil, err
	}

	promo := &domain.PromoCode{
		Code:         code,
		Amount:       amount.Round(2),
		ExpiresAt:    expiresAt,
		SingleUse:    singleUse,
		TargetUserID: targetUserID,
		CreatedBy:    adminID,
	}
	if err := s.promoRepo.Create(ctx, promo); err != nil {
		logger.ExitMethodWithError("promoService.CreatePromoCode", err, "code", code)
		return nil, err
	}
	logger.ExitMethod("promoService.CreatePromoCode", "promoID", promo.ID)
	return promo, nil
}

func (s *promoService) ListPromoCodes(ctx context.Context, page, pageSize int32) ([]domain.PromoCode, int32, error) {
	return s.promoRepo.List(ctx, page, pageSize)
}

func (s *promoService) RedeemPromoCode(ctx context.Context, userID int32, code string, now time.Time) (*domain.LedgerEntry, error) {
	code = normalizePromoCode(code)
	logger.EnterMethod("promoService.RedeemPromoCode", "userID", userID, "code", code)

	var entry *domain.LedgerEntry
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		promo, err := repos.Promos.GetByCodeForUpdate(ctx, code)
		if err != nil {
			return err
		}
		if promo.ExpiredAt(now) {
			return domain.ErrPromoExpired
		}
		if promo.TargetUserID != nil && *promo.TargetUserID != userID {
			return domain.ErrPromoNotAllowed
		}
		if promo.SingleUse && promo.Redemptions > 0 {
			return domain.ErrPromoAlreadyUsed
		}
		used, err := repos.Promos.HasRedeemed(ctx, promo.ID, userID)
		if err != nil {
			return err
		}
		if used {
			return domain.ErrPromoAlreadyUsed
		}

		if err := repos.Promos.CreateRedemption(ctx, promo.ID, userID, now); err != nil {
			return err
		}
		entry, err = applyCredit(ctx, repos, userID, promo.Amount, domain.EntryTypePromoCredit,
			fmt.Sprintf("Promo code %s", promo.Code))
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("promoService.RedeemPromoCode", err, "userID", userID, "code", code)
		return nil, err
	}
	logger.ExitMethod("promoService.RedeemPromoCode", "userID", userID, "amount", entry.Amount.String())
	return entry, nil
}

func normalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
