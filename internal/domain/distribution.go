package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Distribution is the post-sale profit-sharing record, created once per
// project at sale completion. Snapshot balances freeze entitlement so
// last-moment position changes cannot shift shares.
type Distribution struct {
	DistributionID    uuid.UUID `gorm:"column:distribution_id;type:uuid;primaryKey" json:"distribution_id"`
	ProjectID         uuid.UUID `gorm:"column:project_id;type:uuid;not null;uniqueIndex" json:"project_id"`
	SalePrice         BigAmount `gorm:"column:sale_price;type:numeric(78,0);not null" json:"sale_price"`
	TotalCosts        BigAmount `gorm:"column:total_costs;type:numeric(78,0);not null" json:"total_costs"`
	TotalProfit       BigAmount `gorm:"column:total_profit;type:numeric(78,0);not null" json:"total_profit"`
	SnapshotBlock     uint64    `gorm:"column:snapshot_block;not null" json:"snapshot_block"`
	SnapshotSupply    BigAmount `gorm:"column:snapshot_supply;type:numeric(78,0);not null" json:"snapshot_supply"`
	DistributedAmount BigAmount `gorm:"column:distributed_amount;type:numeric(78,0);not null;default:0" json:"distributed_amount"`
	ClaimDeadline     time.Time `gorm:"column:claim_deadline;not null" json:"claim_deadline"`
	Active            bool      `gorm:"column:active;not null;default:true" json:"active"`
	Completed         bool      `gorm:"column:completed;not null;default:false" json:"completed"`
	Recovered         bool      `gorm:"column:recovered;not null;default:false" json:"recovered"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (Distribution) TableName() string {
	return "Distributions"
}

func (d *Distribution) BeforeCreate(tx *gorm.DB) error {
	if d.DistributionID == uuid.Nil {
		d.DistributionID = uuid.New()
	}
	return nil
}

// DistributionEntry is one investor's snapshot balance and claim state.
type DistributionEntry struct {
	EntryID         uuid.UUID `gorm:"column:entry_id;type:uuid;primaryKey" json:"entry_id"`
	ProjectID       uuid.UUID `gorm:"column:project_id;type:uuid;not null;uniqueIndex:idx_dist_entry,priority:1" json:"project_id"`
	InvestorID      uuid.UUID `gorm:"column:investor_id;type:uuid;not null;uniqueIndex:idx_dist_entry,priority:2" json:"investor_id"`
	SnapshotBalance BigAmount `gorm:"column:snapshot_balance;type:numeric(78,0);not null" json:"snapshot_balance"`
	Claimed         bool      `gorm:"column:claimed;not null;default:false" json:"claimed"`
	ClaimedAmount   BigAmount `gorm:"column:claimed_amount;type:numeric(78,0);not null;default:0" json:"claimed_amount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (DistributionEntry) TableName() string {
	return "DistributionEntries"
}

func (e *DistributionEntry) BeforeCreate(tx *gorm.DB) error {
	if e.EntryID == uuid.Nil {
		e.EntryID = uuid.New()
	}
	return nil
}
