package repository

import (
	"context"
	"fmt"

	"github.com/smallbiznis/opsdesk/internal/sequence/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Increment(ctx context.Context, db *gorm.DB, scope string) (int64, error) {
	switch db.Dialector.Name() {
	case "mysql":
		return r.incrementMySQL(ctx, db, scope)
	default:
		return r.incrementUpsertReturning(ctx, db, scope)
	}
}

// incrementUpsertReturning covers postgres and sqlite, both of which support
// upsert with RETURNING as one statement.
func (r *repo) incrementUpsertReturning(ctx context.Context, db *gorm.DB, scope string) (int64, error) {
	var value int64
	err := db.WithContext(ctx).Raw(
		`INSERT INTO sequence_counters (scope, value) VALUES (?, 1)
		 ON CONFLICT (scope) DO UPDATE SET value = sequence_counters.value + 1
		 RETURNING value`,
		scope,
	).Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("increment sequence %q: %w", scope, err)
	}
	return value, nil
}

// incrementMySQL uses LAST_INSERT_ID, which is connection-local, so both
// statements are pinned to one connection via a transaction.
func (r *repo) incrementMySQL(ctx context.Context, db *gorm.DB, scope string) (int64, error) {
	var value int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`INSERT INTO sequence_counters (scope, value) VALUES (?, LAST_INSERT_ID(1))
			 ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + 1)`,
			scope,
		).Error; err != nil {
			return err
		}
		return tx.Raw(`SELECT LAST_INSERT_ID()`).Scan(&value).Error
	})
	if err != nil {
		return 0, fmt.Errorf("increment sequence %q: %w", scope, err)
	}
	return value, nil
}
