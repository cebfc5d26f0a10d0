// Package domain contains persistence models for the staff directory.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role determines what a staff member may do on tickets and bills.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
)

// Staff is an internal operator. Gate attribution and completion attribution
// always point at a Staff row.
type Staff struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Email     string       `gorm:"not null;uniqueIndex" json:"email"`
	Role      Role         `gorm:"type:text;not null;default:'agent'" json:"role"`
	Active    bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Staff) TableName() string { return "staff" }
