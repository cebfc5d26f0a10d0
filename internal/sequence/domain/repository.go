package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Increment atomically bumps the counter for scope and returns the new
	// value, creating the row at 1 when absent. Implementations must issue a
	// single find-and-increment statement, never a read followed by a write.
	Increment(ctx context.Context, db *gorm.DB, scope string) (int64, error)
}
