package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/petcare/vetclinic-backend/pkg/logger"
)

// gormLogger forwards gorm output to the service logger. Query errors are
// left to the caller, which wraps and logs them with request context; only
// slow statements are reported here.
type gormLogger struct {
	logg  *logger.Logger
	slow  time.Duration
	level gormlogger.LogLevel
}

func newGormLogger(logg *logger.Logger, slow time.Duration) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return &gormLogger{logg: logg, slow: slow, level: gormlogger.Warn}
}

func (g *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *gormLogger) Info(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Info {
		g.logg.Info(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Warn {
		g.logg.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (g *gormLogger) Error(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Error {
		g.logg.Error(ctx, "gorm", fmt.Errorf(msg, args...))
	}
}

func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= gormlogger.Info:
		sql, rows := fc()
		g.logg.Debug(g.fields(ctx, sql, rows, elapsed), "db.query_failed")
	case g.slow > 0 && elapsed > g.slow && g.level >= gormlogger.Warn:
		sql, rows := fc()
		g.logg.Warn(g.fields(ctx, sql, rows, elapsed), "db.slow_query")
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		g.logg.Debug(g.fields(ctx, sql, rows, elapsed), "db.query")
	}
}

func (g *gormLogger) fields(ctx context.Context, sql string, rows int64, elapsed time.Duration) context.Context {
	return g.logg.WithFields(ctx, map[string]any{
		"sql":         sql,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	})
}
