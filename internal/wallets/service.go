package wallets

import (
	"context"
	"math/big"

	"terrafund-backend/internal/domain"
	"terrafund-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages stable-asset custody wallets. Every fund movement in the
// core settles against a wallet so money never leaves the closed loop.
type Service struct {
	DB *gorm.DB
}

// Get returns the user's wallet, creating it lazily at zero balance.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	var w domain.Wallet
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error
	if err == gorm.ErrRecordNotFound {
		w = domain.Wallet{UserID: userID}
		if err := s.DB.WithContext(ctx).Create(&w).Error; err != nil {
			return nil, err
		}
		return &w, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// EnsureTx loads or creates the wallet inside the caller's transaction.
func EnsureTx(tx *gorm.DB, userID uuid.UUID) (*domain.Wallet, error) {
	var w domain.Wallet
	err := tx.Where("user_id = ?", userID).First(&w).Error
	if err == gorm.ErrRecordNotFound {
		w = domain.Wallet{UserID: userID}
		if err := tx.Create(&w).Error; err != nil {
			return nil, err
		}
		return &w, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// CreditTx adds amount to the user's wallet inside the caller's transaction.
func CreditTx(tx *gorm.DB, userID uuid.UUID, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return apperr.New(apperr.Validation, "Credit amount must be positive")
	}
	w, err := EnsureTx(tx, userID)
	if err != nil {
		return err
	}
	w.Balance = domain.AmountFromBig(new(big.Int).Add(w.Balance.Big(), amount))
	return tx.Save(w).Error
}

// DebitTx removes amount from the user's wallet inside the caller's
// transaction. Fails with a resource-exhaustion error when the balance does
// not cover the amount.
func DebitTx(tx *gorm.DB, userID uuid.UUID, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return apperr.New(apperr.Validation, "Debit amount must be positive")
	}
	w, err := EnsureTx(tx, userID)
	if err != nil {
		return err
	}
	bal := w.Balance.Big()
	if bal.Cmp(amount) < 0 {
		return apperr.New(apperr.ResourceExhausted, "Insufficient wallet balance").
			With("requested", amount.String()).
			With("available", bal.String())
	}
	w.Balance = domain.AmountFromBig(bal.Sub(bal, amount))
	return tx.Save(w).Error
}
