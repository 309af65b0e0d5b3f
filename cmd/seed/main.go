package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/arepera-backend/internal/seed"
	"github.com/angelmondragon/arepera-backend/pkg/config"
	"github.com/angelmondragon/arepera-backend/pkg/db"
	"github.com/angelmondragon/arepera-backend/pkg/logger"
	"github.com/angelmondragon/arepera-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	result, err := seed.Run(ctx, seed.Params{
		DB:       dbClient,
		Logger:   logg,
		Seed:     cfg.Seed,
		Password: cfg.Password,
	})
	if err != nil {
		logg.Error(ctx, "seed failed", err)
		os.Exit(1)
	}

	if result.AdminPassword != "" {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"email":         cfg.Seed.AdminEmail,
			"temp_password": result.AdminPassword,
		}), "admin created with a generated password, change it after first login")
	}
}
