package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project lifecycle statuses. CANCELLED is reachable from MINTING or BUILDING;
// COMPLETED is terminal.
const (
	ProjectStatusMinting   = "MINTING"
	ProjectStatusBuilding  = "BUILDING"
	ProjectStatusTrading   = "TRADING"
	ProjectStatusFinalSale = "FINAL_SALE"
	ProjectStatusCompleted = "COMPLETED"
	ProjectStatusCancelled = "CANCELLED"
)

// Project is one financing campaign. Cancelled projects persist for refund
// bookkeeping and are never deleted.
type Project struct {
	ProjectID           uuid.UUID  `gorm:"column:project_id;type:uuid;primaryKey" json:"project_id"`
	Name                string     `gorm:"column:name;not null" json:"name"`
	TokenUnitID         uuid.UUID  `gorm:"column:token_unit_id;type:uuid;not null" json:"token_unit_id"`
	ContractorID        uuid.UUID  `gorm:"column:contractor_id;type:uuid;not null" json:"contractor_id"`
	HardCap             BigAmount  `gorm:"column:hard_cap;type:numeric(78,0);not null" json:"hard_cap"`
	SoftCap             BigAmount  `gorm:"column:soft_cap;type:numeric(78,0);not null" json:"soft_cap"`
	TokenPrice          BigAmount  `gorm:"column:token_price;type:numeric(78,0);not null" json:"token_price"`
	TotalRaised         BigAmount  `gorm:"column:total_raised;type:numeric(78,0);not null;default:0" json:"total_raised"`
	SalePrice           BigAmount  `gorm:"column:sale_price;type:numeric(78,0);not null;default:0" json:"sale_price"`
	MintingDeadline     time.Time  `gorm:"column:minting_deadline;not null" json:"minting_deadline"`
	ProjectDeadline     time.Time  `gorm:"column:project_deadline;not null" json:"project_deadline"`
	Status              string     `gorm:"column:status;type:varchar(20);not null;default:'MINTING'" json:"status"`
	ContingencyBps      int64      `gorm:"column:contingency_bps;not null" json:"contingency_bps"`
	PlatformFeeBps      int64      `gorm:"column:platform_fee_bps;not null" json:"platform_fee_bps"`
	MilestoneCount      int        `gorm:"column:milestone_count;not null;default:0" json:"milestone_count"`
	CompletedMilestones int        `gorm:"column:completed_milestones;not null;default:0" json:"completed_milestones"`
	CompletedAt         *time.Time `gorm:"column:completed_at" json:"completed_at"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

func (Project) TableName() string {
	return "Projects"
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ProjectID == uuid.Nil {
		p.ProjectID = uuid.New()
	}
	return nil
}

// Terminal reports whether no further lifecycle transition is possible.
func (p *Project) Terminal() bool {
	return p.Status == ProjectStatusCompleted || p.Status == ProjectStatusCancelled
}

// ProjectVerifier assigns a verifier identity to a project.
type ProjectVerifier struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProjectID  uuid.UUID `gorm:"column:project_id;type:uuid;not null;uniqueIndex:idx_project_verifier,priority:1" json:"project_id"`
	VerifierID uuid.UUID `gorm:"column:verifier_id;type:uuid;not null;uniqueIndex:idx_project_verifier,priority:2" json:"verifier_id"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (ProjectVerifier) TableName() string {
	return "ProjectVerifiers"
}

func (v *ProjectVerifier) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// InvestorPosition tracks one investor's stake in one project: the token
// balance mirror and the cumulative stable-asset deposit. Zeroed on refund or
// profit claim.
type InvestorPosition struct {
	PositionID   uuid.UUID `gorm:"column:position_id;type:uuid;primaryKey" json:"position_id"`
	ProjectID    uuid.UUID `gorm:"column:project_id;type:uuid;not null;uniqueIndex:idx_position,priority:1" json:"project_id"`
	InvestorID   uuid.UUID `gorm:"column:investor_id;type:uuid;not null;uniqueIndex:idx_position,priority:2" json:"investor_id"`
	TokenBalance BigAmount `gorm:"column:token_balance;type:numeric(78,0);not null;default:0" json:"token_balance"`
	Deposited    BigAmount `gorm:"column:deposited;type:numeric(78,0);not null;default:0" json:"deposited"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (InvestorPosition) TableName() string {
	return "InvestorPositions"
}

func (p *InvestorPosition) BeforeCreate(tx *gorm.DB) error {
	if p.PositionID == uuid.Nil {
		p.PositionID = uuid.New()
	}
	return nil
}
