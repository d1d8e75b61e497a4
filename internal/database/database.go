package database

import (
	"terrafund-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN (Postgres pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") when using connection poolers.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// AutoMigrate runs migrations for every core model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Wallet{},
		&domain.Project{},
		&domain.ProjectVerifier{},
		&domain.InvestorPosition{},
		&domain.Milestone{},
		&domain.MilestoneApproval{},
		&domain.EscrowAccount{},
		&domain.MilestonePaymentRecord{},
		&domain.TokenUnit{},
		&domain.TokenBalance{},
		&domain.LiquidityPool{},
		&domain.LiquidityPosition{},
		&domain.Distribution{},
		&domain.DistributionEntry{},
		&domain.AuditEvent{},
		&domain.Payment{},
	)
}
