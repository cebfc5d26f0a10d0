package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsdesk/internal/staff/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, staff *domain.Staff) error {
	return db.WithContext(ctx).Create(staff).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Staff, error) {
	var staff domain.Staff
	err := db.WithContext(ctx).First(&staff, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Staff, error) {
	var staff []*domain.Staff
	err := db.WithContext(ctx).
		Model(&domain.Staff{}).
		Order("created_at asc, id asc").
		Find(&staff).Error
	if err != nil {
		return nil, err
	}
	return staff, nil
}
