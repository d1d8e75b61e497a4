package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TokenUnit is one fungible issuance line per project. Per-block minting
// statistics feed the rate limiter; the window resets naturally when the
// current block differs from LastMintBlock.
type TokenUnit struct {
	UnitID             uuid.UUID `gorm:"column:unit_id;type:uuid;primaryKey" json:"unit_id"`
	ProjectID          uuid.UUID `gorm:"column:project_id;type:uuid;not null;uniqueIndex" json:"project_id"`
	MetadataRef        string    `gorm:"column:metadata_ref" json:"metadata_ref"`
	TotalMinted        BigAmount `gorm:"column:total_minted;type:numeric(78,0);not null;default:0" json:"total_minted"`
	TotalSupply        BigAmount `gorm:"column:total_supply;type:numeric(78,0);not null;default:0" json:"total_supply"`
	LastMintBlock      uint64    `gorm:"column:last_mint_block;not null;default:0" json:"last_mint_block"`
	MintedThisBlock    BigAmount `gorm:"column:minted_this_block;type:numeric(78,0);not null;default:0" json:"minted_this_block"`
	LastLargeMintBlock uint64    `gorm:"column:last_large_mint_block;not null;default:0" json:"last_large_mint_block"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (TokenUnit) TableName() string {
	return "TokenUnits"
}

func (u *TokenUnit) BeforeCreate(tx *gorm.DB) error {
	if u.UnitID == uuid.Nil {
		u.UnitID = uuid.New()
	}
	return nil
}

// TokenBalance is one holder's balance of one unit, at 18-decimal scale.
// Quantity column type follows the multi-edition token indexer convention
// (numeric(78,0) covers the full uint256 range).
type TokenBalance struct {
	BalanceID uuid.UUID `gorm:"column:balance_id;type:uuid;primaryKey" json:"balance_id"`
	UnitID    uuid.UUID `gorm:"column:unit_id;type:uuid;not null;uniqueIndex:idx_token_balance,priority:1" json:"unit_id"`
	HolderID  uuid.UUID `gorm:"column:holder_id;type:uuid;not null;uniqueIndex:idx_token_balance,priority:2" json:"holder_id"`
	Balance   BigAmount `gorm:"column:balance;type:numeric(78,0);not null;default:0" json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (TokenBalance) TableName() string {
	return "TokenBalances"
}

func (b *TokenBalance) BeforeCreate(tx *gorm.DB) error {
	if b.BalanceID == uuid.Nil {
		b.BalanceID = uuid.New()
	}
	return nil
}
