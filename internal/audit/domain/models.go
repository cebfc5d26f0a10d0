// Package domain contains persistence models for the audit trail.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog records who did what to which record. Entries are append-only.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorID    string            `gorm:"not null;index" json:"actor_id"`
	Action     string            `gorm:"not null;index" json:"action"`
	TargetType string            `gorm:"not null" json:"target_type"`
	TargetID   string            `gorm:"not null;index" json:"target_id"`
	Detail     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"detail,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

// Service appends audit entries. Recording failures are logged by the
// implementation and never propagated to the caller.
type Service interface {
	Record(ctx context.Context, actorID, action, targetType, targetID string, detail map[string]any)
}
