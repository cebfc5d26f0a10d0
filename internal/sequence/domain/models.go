// Package domain contains persistence models for sequence allocation.
package domain

// SequenceCounter holds the last issued value for a scope. Rows are created
// implicitly on first allocation and never deleted.
type SequenceCounter struct {
	Scope string `gorm:"primaryKey;size:64" json:"scope"`
	Value int64  `gorm:"not null" json:"value"`
}

// TableName sets the database table name.
func (SequenceCounter) TableName() string { return "sequence_counters" }
