package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsdesk/internal/ticket/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, ticket *domain.Ticket) error {
	return db.WithContext(ctx).Create(ticket).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := db.WithContext(ctx).First(&ticket, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListTicketFilter) ([]*domain.Ticket, error) {
	var tickets []*domain.Ticket
	stmt := db.WithContext(ctx).Model(&domain.Ticket{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ReadyForBilling != nil {
		stmt = stmt.Where("ready_for_billing = ?", *filter.ReadyForBilling)
	}
	if filter.Billed != nil {
		stmt = stmt.Where("billed = ?", *filter.Billed)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, ticket *domain.Ticket) error {
	return db.WithContext(ctx).Save(ticket).Error
}

func (r *repo) MarkBilled(ctx context.Context, db *gorm.DB, ids []snowflake.ID, billID snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	// Already-billed tickets stay linked to their original bill.
	result := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("id IN ? AND billed = ?", ids, false).
		Updates(map[string]any{
			"billed":              true,
			"ready_for_billing":   false,
			"billing_ready_by_id": nil,
			"billing_ready_at":    nil,
			"bill_id":             billID,
		})
	return result.RowsAffected, result.Error
}
