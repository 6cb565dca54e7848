package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/petcare/vetclinic-backend/pkg/config"
)

// ErrSessionNotFound covers expired, revoked and unreadable sessions alike.
var ErrSessionNotFound = errors.New("session not found")

// Store is the redis surface sessions need. *redis.Client satisfies it.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// Resolver is the read side used by request authentication.
type Resolver interface {
	Resolve(ctx context.Context, accessID string) (uuid.UUID, error)
}

type record struct {
	UserID   uuid.UUID `json:"user_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// Manager keeps one redis entry per login, keyed by the token's jti. A token
// whose entry is gone is rejected even before it expires, which is how
// logout works.
type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(store Store, cfg config.JWTConfig) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	ttl := cfg.SessionTTL()
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}, nil
}

// Create stores a session for userID and returns its access id.
func (m *Manager) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	payload, err := json.Marshal(record{UserID: userID, IssuedAt: m.now().UTC()})
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	accessID := uuid.NewString()
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(payload), m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return accessID, nil
}

func (m *Manager) Resolve(ctx context.Context, accessID string) (uuid.UUID, error) {
	if strings.TrimSpace(accessID) == "" {
		return uuid.Nil, ErrSessionNotFound
	}
	raw, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, goredis.Nil):
		return uuid.Nil, ErrSessionNotFound
	case err != nil:
		return uuid.Nil, fmt.Errorf("load session: %w", err)
	}
	var rec record
	if json.Unmarshal([]byte(raw), &rec) != nil || rec.UserID == uuid.Nil {
		return uuid.Nil, ErrSessionNotFound
	}
	return rec.UserID, nil
}

// Revoke is idempotent; revoking a missing session is not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errors.New("access id is required")
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}
