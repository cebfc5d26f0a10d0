// Package seed provisions the records a fresh deployment needs on startup.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsdesk/internal/config"
	staffdomain "github.com/smallbiznis/opsdesk/internal/staff/domain"
	"gorm.io/gorm"
)

// EnsureDefaultAdmin creates the bootstrap admin staff account when no staff
// with the configured email exists yet. Every authorized route requires a
// staff identity, so without this a new install would be unreachable.
func EnsureDefaultAdmin(db *gorm.DB, cfg config.BootstrapConfig) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	name := strings.TrimSpace(cfg.AdminName)
	if email == "" || name == "" {
		return errors.New("bootstrap admin name and email are required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing staffdomain.Staff
		err := tx.WithContext(ctx).Where("email = ?", email).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		admin := staffdomain.Staff{
			ID:        node.Generate(),
			Name:      name,
			Email:     email,
			Role:      staffdomain.RoleAdmin,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.WithContext(ctx).Create(&admin).Error
	})
}
