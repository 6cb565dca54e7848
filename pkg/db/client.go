package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/petcare/vetclinic-backend/pkg/config"
	"github.com/petcare/vetclinic-backend/pkg/logger"
)

// Client owns the gorm handle shared by every repository.
type Client struct {
	conn *gorm.DB
}

// New opens postgres (or sqlite for local runs), applies pool limits and
// routes gorm's own logging through logg.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newGormLogger(logg, cfg.SlowQuery),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	configurePool(sqlDB, cfg)

	if cfg.IsSQLite() {
		if err := conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "driver", cfg.Driver), "database connected")
	}
	return &Client{conn: conn}, nil
}

// NewFromConn wraps a connection opened elsewhere, mostly tests.
func NewFromConn(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func dialectorFor(cfg config.DBConfig) (gorm.Dialector, error) {
	switch {
	case cfg.IsSQLite():
		path := cfg.DSN
		if path == "" {
			path = cfg.SQLitePath
		}
		return sqlite.Open(path), nil
	case cfg.DSN == "":
		return nil, errors.New("database DSN is required")
	default:
		return postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}), nil
	}
}

func configurePool(sqlDB *sql.DB, cfg config.DBConfig) {
	if cfg.IsSQLite() {
		// one writer at a time, otherwise SQLITE_BUSY under load
		sqlDB.SetMaxOpenConns(1)
		return
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) SQLDB() (*sql.DB, error) {
	return c.conn.DB()
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn in one transaction; a returned error or panic rolls back.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
