package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	anomalydomain "github.com/fintelhq/fintel/internal/anomaly/domain"
	"github.com/fintelhq/fintel/internal/config"
	invoicedomain "github.com/fintelhq/fintel/internal/invoice/domain"
	vendordomain "github.com/fintelhq/fintel/internal/vendors/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}
		// The versioned migrations target postgres; other dialects get the
		// schema from the models directly.
		return conn.AutoMigrate(
			&invoicedomain.Invoice{},
			&vendordomain.Vendor{},
			&anomalydomain.Anomaly{},
		)
	}),
)
