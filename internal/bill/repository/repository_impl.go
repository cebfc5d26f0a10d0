package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsdesk/internal/bill/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, bill *domain.Bill) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(bill).Error
	})
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Bill, error) {
	var bill domain.Bill
	err := db.WithContext(ctx).
		Preload("Items").
		First(&bill, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Bill, error) {
	var bills []*domain.Bill
	err := db.WithContext(ctx).
		Model(&domain.Bill{}).
		Preload("Items").
		Order("created_at desc, id desc").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) ListByClient(ctx context.Context, db *gorm.DB, clientID snowflake.ID) ([]*domain.Bill, error) {
	var bills []*domain.Bill
	err := db.WithContext(ctx).
		Model(&domain.Bill{}).
		Preload("Items").
		Where("client_id = ?", clientID).
		Order("created_at desc, id desc").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, bill *domain.Bill, replaceItems bool) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if replaceItems {
			if err := tx.Where("bill_id = ?", bill.ID).Delete(&domain.BillItem{}).Error; err != nil {
				return err
			}
			if len(bill.Items) > 0 {
				if err := tx.Create(&bill.Items).Error; err != nil {
					return err
				}
			}
		}
		return tx.Omit("Items").Save(bill).Error
	})
}
