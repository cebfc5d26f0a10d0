package migration

import (
	auditdomain "github.com/smallbiznis/opsdesk/internal/audit/domain"
	billdomain "github.com/smallbiznis/opsdesk/internal/bill/domain"
	clientdomain "github.com/smallbiznis/opsdesk/internal/client/domain"
	"github.com/smallbiznis/opsdesk/internal/config"
	"github.com/smallbiznis/opsdesk/internal/seed"
	sequencedomain "github.com/smallbiznis/opsdesk/internal/sequence/domain"
	staffdomain "github.com/smallbiznis/opsdesk/internal/staff/domain"
	ticketdomain "github.com/smallbiznis/opsdesk/internal/ticket/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if conn.Dialector.Name() == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Non-postgres deployments (mysql, sqlite) rely on gorm's
			// schema sync instead of the versioned SQL migrations.
			if err := conn.AutoMigrate(
				&sequencedomain.SequenceCounter{},
				&staffdomain.Staff{},
				&clientdomain.Client{},
				&ticketdomain.Ticket{},
				&billdomain.Bill{},
				&billdomain.BillItem{},
				&auditdomain.AuditLog{},
			); err != nil {
				return err
			}
		}

		if cfg.Bootstrap.EnsureDefaultAdmin {
			return seed.EnsureDefaultAdmin(conn, cfg.Bootstrap)
		}
		return nil
	}),
)
