package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/petcare/vetclinic-backend/internal/catalog"
	"github.com/petcare/vetclinic-backend/pkg/config"
	"github.com/petcare/vetclinic-backend/pkg/db"
	"github.com/petcare/vetclinic-backend/pkg/logger"
	"github.com/petcare/vetclinic-backend/pkg/migrate"
)

// gooseCommands pass straight through to goose.
var gooseCommands = map[string]bool{
	"up":     true,
	"down":   true,
	"redo":   true,
	"status": true,
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|redo|status|version|seed|create|validate")
	dir := flag.String("dir", "", "goose migrations directory; empty uses the migrations built into the binary")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate work on files only.
	switch *cmd {
	case "create":
		if *name == "" {
			fail("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(dirOrDefault(*dir), *name)
		if err != nil {
			fail("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		validate := migrate.ValidateEmbedded
		if *dir != "" {
			validate = func() error { return migrate.ValidateDir(*dir) }
		}
		if err := validate(); err != nil {
			fail("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	requireResource(logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.SQLDB()
	requireResource(logg, "sql database", err)

	logg.Info(ctx, "migrate ready")

	switch {
	case gooseCommands[*cmd]:
		if err := migrate.Run(ctx, sqlDB, *dir, *cmd); err != nil {
			fail("goose %s failed: %v", *cmd, err)
		}
	case *cmd == "version":
		if *version == "" {
			fail("missing -version for version command")
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, *dir, *version); err != nil {
			fail("goose version migrate failed: %v", err)
		}
	case *cmd == "seed":
		svc, err := catalog.NewService(catalog.ServiceParams{DB: dbClient, Logger: logg})
		requireResource(logg, "catalog service", err)
		if err := svc.EnsureMainServices(ctx); err != nil {
			fail("seeding main services failed: %v", err)
		}
		logg.Info(ctx, "main services seeded")
	default:
		fail("unknown -cmd value: %s", *cmd)
	}
}

func dirOrDefault(dir string) string {
	if dir == "" {
		return migrate.DefaultDir
	}
	return dir
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
