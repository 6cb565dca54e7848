package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is the on-disk location used by create and validate.
const DefaultDir = "pkg/migrate/migrations"

const embeddedDir = "migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// source points goose at dir on disk, or at the migrations compiled into the
// binary when dir is empty.
func source(dir string) (string, error) {
	if err := goose.SetDialect(string(goose.DialectPostgres)); err != nil {
		return "", fmt.Errorf("set goose dialect: %w", err)
	}
	if dir == "" {
		goose.SetBaseFS(embedded)
		return embeddedDir, nil
	}
	goose.SetBaseFS(nil)
	return dir, nil
}

// Run executes a goose command such as up, down, status or redo.
func Run(ctx context.Context, db *sql.DB, dir string, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	resolved, err := source(dir)
	if err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, db, resolved, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion moves the schema up or down until it sits at targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, targetVersion string) error {
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}
	resolved, err := source(dir)
	if err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current < target:
		if err := goose.UpToContext(ctx, db, resolved, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	case current > target:
		if err := goose.DownToContext(ctx, db, resolved, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}
