package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
)

type ledgerService struct {
	tx         repository.Transactor
	userRepo   repository.UserRepository
	ledgerRepo repository.LedgerRepository
	maxTopUp   decimal.Decimal
}

func NewLedgerService(tx repository.Transactor, userRepo repository.UserRepository, ledgerRepo repository.LedgerRepository, maxTopUp decimal.Decimal) LedgerService {
	return &ledgerService{
		tx:         tx,
		userRepo:   userRepo,
		ledgerRepo: ledgerRepo,
		maxTopUp:   maxTopUp,
	}
}

func (s *ledgerService) GetBalance(ctx context.Context, userID int32) (decimal.Decimal, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return user.Balance, nil
}

func (s *ledgerService) ListEntries(ctx context.Context, userID int32, page, pageSize int32) ([]domain.LedgerEntry, int32, error) {
	return s.ledgerRepo.List(ctx, userID, page, pageSize)
}

func (s *ledgerService) TopUp(ctx context.Context, userID int32, amount decimal.Decimal) (*domain.LedgerEntry, error) {
	logger.EnterMethod("ledgerService.TopUp", "userID", userID, "amount", amount.String())

	amount = amount.Round(2)
	if !amount.IsPositive() {
		err := domain.NewValidationError("amount must be greater than zero")
		logger.ExitMethodWithError("ledgerService.TopUp", err)
		return nil, err
	}
	if amount.GreaterThan(s.maxTopUp) {
		err := domain.NewValidationError(fmt.Sprintf("amount must not exceed %s", s.maxTopUp.StringFixed(2)))
		logger.ExitMethodWithError("ledgerService.TopUp", err)
		return nil, err
	}

	entry, err := credit(ctx, s.tx, userID, amount, domain.EntryTypeTopUp, "Balance top-up")
	if err != nil {
		logger.ExitMethodWithError("ledgerService.TopUp", err, "userID", userID)
		return nil, err
	}
	logger.ExitMethod("ledgerService.TopUp", "userID", userID, "balance", entry.BalanceAfter.String())
	return entry, nil
}

// credit applies a signed balance movement and records it, atomically.
// The resulting balance may not be negative.
func credit(ctx context.Context, tx repository.Transactor, userID int32, amount decimal.Decimal, kind domain.EntryType, description string) (*domain.LedgerEntry, error) {
	var entry *domain.LedgerEntry
	err := tx.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		entry, err = applyCredit(ctx, repos, userID, amount, kind, description)
		return err
	})
	return entry, err
}

func applyCredit(ctx context.Context, repos repository.Repositories, userID int32, amount decimal.Decimal, kind domain.EntryType, description string) (*domain.LedgerEntry, error) {
	user, err := repos.Users.GetForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	balance := user.Balance.Add(amount)
	if balance.IsNegative() {
		return nil, domain.ErrInsufficientBalance
	}
	if err := repos.Users.UpdateBalance(ctx, userID, balance); err != nil {
		return nil, err
	}
	entry := &domain.LedgerEntry{
		UserID:       userID,
		Type:         kind,
		Amount:       amount,
		BalanceAfter: balance,
		Description:  description,
	}
	if err := repos.Ledger.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
