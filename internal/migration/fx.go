package migration

import (
	authdomain "github.com/outlinehq/outliner/internal/auth/domain"
	"github.com/outlinehq/outliner/internal/config"
	orgdomain "github.com/outlinehq/outliner/internal/organization/domain"
	outlinedomain "github.com/outlinehq/outliner/internal/outline/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned SQL migrations target postgres. Other dialects are for
		// local development and use schema sync instead.
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		return conn.AutoMigrate(
			&authdomain.User{},
			&authdomain.Session{},
			&authdomain.Verification{},
			&orgdomain.Organization{},
			&orgdomain.OrganizationMember{},
			&orgdomain.Invitation{},
			&outlinedomain.Outline{},
		)
	}),
)
