package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/arepera-backend/pkg/config"
	"github.com/angelmondragon/arepera-backend/pkg/db"
	"github.com/angelmondragon/arepera-backend/pkg/logger"
	"github.com/angelmondragon/arepera-backend/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
}

// offline commands run without a database connection.
var offline = map[string]func(options) error{
	"create": func(o options) error {
		if o.name == "" {
			return fmt.Errorf("-name is required for create")
		}
		path, err := migrate.CreateSQLMigration(o.dir, o.name)
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	},
	"validate": func(o options) error {
		return migrate.ValidateDir(o.dir)
	},
}

var online = map[string]func(context.Context, *sql.DB, options) error{
	"up":     gooseCommand("up"),
	"down":   gooseCommand("down"),
	"redo":   gooseCommand("redo"),
	"status": gooseCommand("status"),
	"version": func(ctx context.Context, conn *sql.DB, o options) error {
		if o.version == "" {
			return fmt.Errorf("-version is required for version")
		}
		return migrate.MigrateToVersion(ctx, conn, o.dir, o.version)
	},
}

func gooseCommand(command string) func(context.Context, *sql.DB, options) error {
	return func(ctx context.Context, conn *sql.DB, o options) error {
		return migrate.Run(ctx, conn, o.dir, command)
	}
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "one of: "+strings.Join(commandNames(), "|"))
	var opts options
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": *cmd, "dir": opts.dir})

	if run, ok := offline[*cmd]; ok {
		exitOn(ctx, logg, run(opts))
		logg.Info(ctx, "migrate.done")
		return
	}
	run, ok := online[*cmd]
	if !ok {
		exitOn(ctx, logg, fmt.Errorf("unknown -cmd %q", *cmd))
	}

	cfg, err := config.Load()
	exitOn(ctx, logg, err)
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOn(ctx, logg, err)
	defer dbClient.Close()

	conn, err := dbClient.DB().DB()
	exitOn(ctx, logg, err)

	if err := run(ctx, conn, opts); err != nil {
		dbClient.Close()
		exitOn(ctx, logg, err)
	}
	logg.Info(ctx, "migrate.done")
}

func commandNames() []string {
	names := make([]string, 0, len(offline)+len(online))
	for name := range offline {
		names = append(names, name)
	}
	for name := range online {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func exitOn(ctx context.Context, logg *logger.Logger, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "migrate.failed", err)
	os.Exit(1)
}
