package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/petcare/vetclinic-backend/pkg/env"
)

type Options struct {
	ServiceName string
	Level       zerolog.Level
	// WarnStack attaches a stack trace to warnings as well as errors.
	WarnStack bool
	Output    io.Writer
}

// Logger writes JSON lines through zerolog. Request and job scoped fields
// ride on the context so handlers never pass loggers around.
type Logger struct {
	root      zerolog.Logger
	warnStack bool
}

func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(env.Get("LOG_FORMAT", "json"), "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	level := opts.Level
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	root := zerolog.New(out).Level(level).With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger()
	return &Logger{root: root, warnStack: opts.WarnStack}
}

// ParseLevel falls back to info for empty or unknown names.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) from(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if scoped := zerolog.Ctx(ctx); scoped.GetLevel() != zerolog.Disabled {
			return scoped
		}
	}
	return &l.root
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	scoped := l.from(ctx).With().Fields(fields).Logger()
	return scoped.WithContext(ctx)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.WithFields(ctx, map[string]any{key: value})
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

func (l *Logger) WithActorRole(ctx context.Context, role string) context.Context {
	return l.WithField(ctx, "actor_role", role)
}

func (l *Logger) WithJobName(ctx context.Context, name string) context.Context {
	return l.WithField(ctx, "job_name", name)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.from(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.from(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	event := l.from(ctx).Warn()
	if l.warnStack {
		event.Str("stack", stack())
	}
	event.Msg(msg)
}

// Error always carries a stack trace.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	l.from(ctx).Error().Err(err).Str("stack", stack()).Msg(msg)
}

func stack() string {
	return strings.TrimSpace(string(debug.Stack()))
}
