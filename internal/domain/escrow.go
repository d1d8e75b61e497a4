package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EscrowAccount is the per-project fund custody ledger. Invariant enforced by
// the escrow service: TotalPaidOut never exceeds TotalDeposited.
type EscrowAccount struct {
	AccountID            uuid.UUID `gorm:"column:account_id;type:uuid;primaryKey" json:"account_id"`
	ProjectID            uuid.UUID `gorm:"column:project_id;type:uuid;not null;uniqueIndex" json:"project_id"`
	TotalDeposited       BigAmount `gorm:"column:total_deposited;type:numeric(78,0);not null;default:0" json:"total_deposited"`
	TotalPaidOut         BigAmount `gorm:"column:total_paid_out;type:numeric(78,0);not null;default:0" json:"total_paid_out"`
	ContingencyUsed      BigAmount `gorm:"column:contingency_used;type:numeric(78,0);not null;default:0" json:"contingency_used"`
	PlatformFeeCollected BigAmount `gorm:"column:platform_fee_collected;type:numeric(78,0);not null;default:0" json:"platform_fee_collected"`
	ContingencyBps       int64     `gorm:"column:contingency_bps;not null;default:0" json:"contingency_bps"`
	Initialized          bool      `gorm:"column:initialized;not null;default:false" json:"initialized"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func (EscrowAccount) TableName() string {
	return "EscrowAccounts"
}

func (a *EscrowAccount) BeforeCreate(tx *gorm.DB) error {
	if a.AccountID == uuid.Nil {
		a.AccountID = uuid.New()
	}
	return nil
}

// MilestonePaymentRecord stores the released amount per milestone index on the
// escrow side. One row per index; the project state machine guarantees single
// invocation per index via the milestone status transition.
type MilestonePaymentRecord struct {
	RecordID  uuid.UUID `gorm:"column:record_id;type:uuid;primaryKey" json:"record_id"`
	ProjectID uuid.UUID `gorm:"column:project_id;type:uuid;not null;uniqueIndex:idx_payment_record,priority:1" json:"project_id"`
	Index     int       `gorm:"column:idx;not null;uniqueIndex:idx_payment_record,priority:2" json:"index"`
	Amount    BigAmount `gorm:"column:amount;type:numeric(78,0);not null" json:"amount"`
	PaidTo    uuid.UUID `gorm:"column:paid_to;type:uuid;not null" json:"paid_to"`
	CreatedAt time.Time `json:"createdAt"`
}

func (MilestonePaymentRecord) TableName() string {
	return "MilestonePaymentRecords"
}

func (r *MilestonePaymentRecord) BeforeCreate(tx *gorm.DB) error {
	if r.RecordID == uuid.Nil {
		r.RecordID = uuid.New()
	}
	return nil
}
