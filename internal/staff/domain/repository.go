package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, staff *Staff) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Staff, error)
	List(ctx context.Context, db *gorm.DB) ([]*Staff, error)
}
