package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Wallet holds a user's stable-asset balance in base units. All fund movements
// in the core (investments, milestone payouts, refunds, swaps, profit claims)
// settle against wallets so money never leaves the closed loop untracked.
type Wallet struct {
	WalletID  uuid.UUID `gorm:"column:wallet_id;type:uuid;primaryKey" json:"wallet_id"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"user_id"`
	Balance   BigAmount `gorm:"column:balance;type:numeric(78,0);not null;default:0" json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Wallet) TableName() string {
	return "Wallets"
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.WalletID == uuid.Nil {
		w.WalletID = uuid.New()
	}
	return nil
}
