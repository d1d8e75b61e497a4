package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Milestone statuses. Pending → Submitted → {Disputed, Verified} → Paid.
// A rejected dispute resets the milestone to Pending for resubmission.
const (
	MilestoneStatusPending   = "pending"
	MilestoneStatusSubmitted = "submitted"
	MilestoneStatusDisputed  = "disputed"
	MilestoneStatusVerified  = "verified"
	MilestoneStatusPaid      = "paid"
)

// Milestone is one construction phase within a project. Index defines the
// strict sequential order; a milestone cannot be submitted until the prior
// index is paid.
type Milestone struct {
	MilestoneID       uuid.UUID  `gorm:"column:milestone_id;type:uuid;primaryKey" json:"milestone_id"`
	ProjectID         uuid.UUID  `gorm:"column:project_id;type:uuid;not null;uniqueIndex:idx_milestone,priority:1" json:"project_id"`
	Index             int        `gorm:"column:idx;not null;uniqueIndex:idx_milestone,priority:2" json:"index"`
	Description       string     `gorm:"column:description;not null" json:"description"`
	BudgetBps         int64      `gorm:"column:budget_bps;not null" json:"budget_bps"`
	RequiredApprovals int        `gorm:"column:required_approvals;not null" json:"required_approvals"`
	ApprovalCount     int        `gorm:"column:approval_count;not null;default:0" json:"approval_count"`
	Status            string     `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	DocRef            string     `gorm:"column:doc_ref" json:"doc_ref"`
	PaymentAmount     BigAmount  `gorm:"column:payment_amount;type:numeric(78,0);not null;default:0" json:"payment_amount"`
	SubmittedAt       *time.Time `gorm:"column:submitted_at" json:"submitted_at"`
	CompletedAt       *time.Time `gorm:"column:completed_at" json:"completed_at"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (Milestone) TableName() string {
	return "Milestones"
}

func (m *Milestone) BeforeCreate(tx *gorm.DB) error {
	if m.MilestoneID == uuid.Nil {
		m.MilestoneID = uuid.New()
	}
	return nil
}

// MilestoneApproval records one verifier's approval of one milestone index.
// The unique index is the double-vote guard.
type MilestoneApproval struct {
	ApprovalID uuid.UUID `gorm:"column:approval_id;type:uuid;primaryKey" json:"approval_id"`
	ProjectID  uuid.UUID `gorm:"column:project_id;type:uuid;not null;uniqueIndex:idx_approval,priority:1" json:"project_id"`
	Index      int       `gorm:"column:idx;not null;uniqueIndex:idx_approval,priority:2" json:"index"`
	VerifierID uuid.UUID `gorm:"column:verifier_id;type:uuid;not null;uniqueIndex:idx_approval,priority:3" json:"verifier_id"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (MilestoneApproval) TableName() string {
	return "MilestoneApprovals"
}

func (a *MilestoneApproval) BeforeCreate(tx *gorm.DB) error {
	if a.ApprovalID == uuid.Nil {
		a.ApprovalID = uuid.New()
	}
	return nil
}
