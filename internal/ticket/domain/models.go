// Package domain contains persistence models for support tickets.
package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Priority represents ticket urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Status represents ticket lifecycle states. The billing-readiness flag is
// orthogonal to status, not a state fork.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Ticket is a client-submitted support request tracked through the status
// lifecycle and, once resolved and flagged ready, consolidated into a bill.
type Ticket struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	Number            string            `gorm:"not null;uniqueIndex" json:"number"`
	ClientID          *snowflake.ID     `gorm:"index" json:"client_id,omitempty"`
	Subject           string            `gorm:"not null" json:"subject"`
	Description       string            `gorm:"type:text" json:"description,omitempty"`
	Priority          Priority          `gorm:"type:text;not null;default:'medium'" json:"priority"`
	Status            Status            `gorm:"type:text;not null;default:'open';index" json:"status"`
	AssigneeID        *snowflake.ID     `gorm:"index" json:"assignee_id,omitempty"`
	ResolutionDetails string            `gorm:"type:text" json:"resolution_details,omitempty"`
	ResolvedByID      *snowflake.ID     `gorm:"" json:"resolved_by_id,omitempty"`
	ResolvedAt        *time.Time        `gorm:"" json:"resolved_at,omitempty"`
	ReadyForBilling   bool              `gorm:"not null;default:false;index" json:"ready_for_billing"`
	BillingReadyByID  *snowflake.ID     `gorm:"" json:"billing_ready_by_id,omitempty"`
	BillingReadyAt    *time.Time        `gorm:"" json:"billing_ready_at,omitempty"`
	Billed            bool              `gorm:"not null;default:false;index" json:"billed"`
	BillID            *snowflake.ID     `gorm:"index" json:"bill_id,omitempty"`
	Metadata          datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Ticket) TableName() string { return "tickets" }

// FormatNumber renders the human-readable ticket number for a sequence value.
// Numbers are zero-padded to three digits and keep growing past 999.
func FormatNumber(seq int64) string {
	return fmt.Sprintf("TKPD%03d", seq)
}

// ValidPriority reports whether value is a known priority.
func ValidPriority(value Priority) bool {
	switch value {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// ValidStatus reports whether value is a known status.
func ValidStatus(value Status) bool {
	switch value {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	default:
		return false
	}
}
