package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, bill *Bill) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Bill, error)
	List(ctx context.Context, db *gorm.DB) ([]*Bill, error)
	ListByClient(ctx context.Context, db *gorm.DB, clientID snowflake.ID) ([]*Bill, error)
	// Update saves the bill row and, when items are present, replaces the
	// full item list.
	Update(ctx context.Context, db *gorm.DB, bill *Bill, replaceItems bool) error
}
