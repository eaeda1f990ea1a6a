package migration

import (
	authdomain "github.com/inkwell-ai/inkwell/internal/auth/domain"
	"github.com/inkwell-ai/inkwell/internal/config"
	contentdomain "github.com/inkwell-ai/inkwell/internal/content/domain"
	"github.com/inkwell-ai/inkwell/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// mysql and sqlite deployments are dev-grade; gorm owns the schema there.
			if err := conn.AutoMigrate(
				&authdomain.Account{},
				&authdomain.Session{},
				&contentdomain.Artifact{},
			); err != nil {
				return err
			}
		}

		if cfg.Environment != "production" {
			return seed.EnsureDemoAccount(conn, cfg.Credits.SignupGrant)
		}
		return nil
	}),
)
