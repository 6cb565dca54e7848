package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/petcare/vetclinic-backend/pkg/config"
	"github.com/petcare/vetclinic-backend/pkg/logger"
)

const keyNamespace = "petcare"

var errNotConnected = errors.New("redis client not connected")

// cmdable is the subset of go-redis the clinic uses; tests swap in a map.
type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Incr(context.Context, string) *redis.IntCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// compareAndDelete drops KEYS[1] only while it still holds ARGV[1].
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Client backs sessions, auth rate limits, reminder markers and the cron
// lock.
type Client struct {
	cmd     cmdable
	scripts redis.Scripter
	conn    *redis.Client
}

// New connects and pings once so a bad URL fails at boot.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"addr": opts.Addr, "db": opts.DB}), "redis connected")
	}
	return &Client{cmd: conn, scripts: conn, conn: conn}, nil
}

// options lets a URL win over discrete fields; pool and timeout settings fill
// whatever the URL left unset.
func options(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB}
	default:
		return nil, errors.New("redis url or address is required")
	}

	fillInt := func(dst *int, v int) {
		if *dst == 0 {
			*dst = v
		}
	}
	fillDur := func(dst *time.Duration, v time.Duration) {
		if *dst == 0 {
			*dst = v
		}
	}
	fillInt(&opts.DB, cfg.DB)
	fillInt(&opts.PoolSize, cfg.PoolSize)
	fillInt(&opts.MinIdleConns, cfg.MinIdleConns)
	fillDur(&opts.DialTimeout, cfg.DialTimeout)
	fillDur(&opts.ReadTimeout, cfg.ReadTimeout)
	fillDur(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.cmd == nil {
		return errNotConnected
	}
	return c.cmd.Set(ctx, key, value, ttl).Err()
}

// Get returns redis.Nil for a missing key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.cmd == nil {
		return "", errNotConnected
	}
	return c.cmd.Get(ctx, key).Result()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.cmd == nil {
		return false, errNotConnected
	}
	return c.cmd.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.cmd == nil {
		return errNotConnected
	}
	return c.cmd.Del(ctx, keys...).Err()
}

// IncrWithTTL bumps a fixed-window counter. The window starts on the first
// increment, so only that call sets the expiry.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if c.cmd == nil {
		return 0, errNotConnected
	}
	count, err := c.cmd.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if count == 1 && ttl > 0 {
		if err := c.cmd.Expire(ctx, key, ttl).Err(); err != nil {
			return count, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return count, nil
}

// CompareAndDelete removes key atomically when its value equals expected and
// reports whether it did.
func (c *Client) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	if c.scripts == nil {
		return false, errNotConnected
	}
	deleted, err := compareAndDelete.Run(ctx, c.scripts, []string{key}, expected).Int64()
	if err != nil {
		return false, fmt.Errorf("compare and delete %s: %w", key, err)
	}
	return deleted == 1, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c.cmd == nil {
		return errNotConnected
	}
	return c.cmd.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// AccessSessionKey maps a JWT access id to its session entry.
func (c *Client) AccessSessionKey(accessID string) string {
	return key("session", "access", accessID)
}

// ReminderMarkerKey marks the clinic-local day whose reminders went out.
func (c *Client) ReminderMarkerKey(day time.Time) string {
	return key("reminders", "sent", day.Format(time.DateOnly))
}

func (c *Client) LockKey(name string) string {
	return key("lock", name)
}

func key(parts ...string) string {
	out := []string{keyNamespace}
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ":")
}
