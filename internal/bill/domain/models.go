// Package domain contains persistence models for billing.
package domain

import (
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// BillType distinguishes a tax invoice from a performa invoice.
type BillType string

const (
	BillTypeInvoice  BillType = "invoice"
	BillTypePerforma BillType = "performa"
)

// BillTo is the recipient snapshot captured at creation time. It is a value
// object, never a live reference: later edits to the client record must not
// rewrite historical invoices.
type BillTo struct {
	Name    string `gorm:"column:name;not null" json:"name"`
	Address string `gorm:"column:address;type:text" json:"address,omitempty"`
	TaxID   string `gorm:"column:tax_id;type:text" json:"tax_id,omitempty"`
}

// BankDetails is the bank-transfer snapshot printed on the bill.
type BankDetails struct {
	AccountName string `gorm:"column:account_name" json:"account_name,omitempty"`
	AccountNo   string `gorm:"column:account_no" json:"account_no,omitempty"`
	BankName    string `gorm:"column:bank_name" json:"bank_name,omitempty"`
	IFSC        string `gorm:"column:ifsc" json:"ifsc,omitempty"`
	Branch      string `gorm:"column:branch" json:"branch,omitempty"`
}

// Bill is a persisted invoice. The number is immutable once assigned; totals
// are computed server-side from the items. Once completed, the serving layer
// rejects edits.
type Bill struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	Number        string            `gorm:"not null;uniqueIndex" json:"number"`
	Type          BillType          `gorm:"type:text;not null;default:'invoice'" json:"type"`
	ClientID      *snowflake.ID     `gorm:"index" json:"client_id,omitempty"`
	BillTo        BillTo            `gorm:"embedded;embeddedPrefix:bill_to_" json:"bill_to"`
	Date          time.Time         `gorm:"not null" json:"date"`
	Subtotal      float64           `gorm:"not null;default:0" json:"subtotal"`
	SGSTPercent   float64           `gorm:"not null;default:0" json:"sgst_percent"`
	SGSTAmount    float64           `gorm:"not null;default:0" json:"sgst_amount"`
	CGSTPercent   float64           `gorm:"not null;default:0" json:"cgst_percent"`
	CGSTAmount    float64           `gorm:"not null;default:0" json:"cgst_amount"`
	GrandTotal    float64           `gorm:"not null;default:0" json:"grand_total"`
	Bank          BankDetails       `gorm:"embedded;embeddedPrefix:bank_" json:"bank"`
	Completed     bool              `gorm:"not null;default:false" json:"completed"`
	CompletedByID *snowflake.ID     `gorm:"" json:"completed_by_id,omitempty"`
	CompletedAt   *time.Time        `gorm:"" json:"completed_at,omitempty"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	Items         []BillItem        `gorm:"foreignKey:BillID" json:"items"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Bill) TableName() string { return "bills" }

// RoundedGrandTotal is the display total, rounded to the nearest whole
// currency unit. Stored values keep full computed precision.
func (b Bill) RoundedGrandTotal() float64 {
	return math.Round(b.GrandTotal)
}

// BillItem is a line on a bill.
type BillItem struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	BillID      snowflake.ID `gorm:"not null;index" json:"bill_id"`
	Description string       `gorm:"type:text;not null" json:"description"`
	UnitAmount  float64      `gorm:"not null" json:"unit_amount"`
	Quantity    int64        `gorm:"not null" json:"quantity"`
	Amount      float64      `gorm:"not null" json:"amount"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (BillItem) TableName() string { return "bill_items" }

// ValidType reports whether value is a known bill type.
func ValidType(value BillType) bool {
	switch value {
	case BillTypeInvoice, BillTypePerforma:
		return true
	default:
		return false
	}
}
