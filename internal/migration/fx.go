package migration

import (
	"context"

	"github.com/smallbiznis/partnerdesk/internal/config"
	"github.com/smallbiznis/partnerdesk/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, deps seed.Params) error {
		if err := Migrate(conn, cfg); err != nil {
			return err
		}
		if cfg.Bootstrap.SeedDevData {
			return seed.EnsureDemoData(context.Background(), deps)
		}
		return nil
	}),
)
