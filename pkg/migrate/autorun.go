package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/arepera-backend/pkg/config"
	"github.com/angelmondragon/arepera-backend/pkg/db"
	"github.com/angelmondragon/arepera-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations at startup when AREPERA_APP_ENV=dev
// and AREPERA_AUTO_MIGRATE are both set. Non-postgres drivers are skipped
// because the migrations use postgres DDL.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithFields(ctx, map[string]any{"dir": DefaultDir, "driver": cfg.DB.Driver})
	if driver := strings.ToLower(cfg.DB.Driver); driver != "" && driver != "postgres" {
		logg.Warn(ctx, "migrate.autorun_skipped_driver")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("dev auto-migrate: %w", err)
	}

	version, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logg.Info(logg.WithField(ctx, "version", version), "migrate.autorun_complete")
	return nil
}
