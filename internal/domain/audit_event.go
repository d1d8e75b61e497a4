package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditEvent is the mandatory structured audit record emitted by every
// state-changing operation: kind, project, actor and a JSON payload of the
// relevant amounts and resulting status.
type AuditEvent struct {
	EventID   uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	Kind      string         `gorm:"column:kind;type:varchar(40);not null;index" json:"kind"`
	ProjectID uuid.UUID      `gorm:"column:project_id;type:uuid;not null;index" json:"project_id"`
	ActorID   *uuid.UUID     `gorm:"column:actor_id;type:uuid" json:"actor_id"`
	Payload   datatypes.JSON `gorm:"column:payload;type:json" json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (AuditEvent) TableName() string {
	return "AuditEvents"
}

func (e *AuditEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
