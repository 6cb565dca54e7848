package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	LockName       = "cron-worker"
	defaultLockTTL = 10 * time.Minute
)

// Lock keeps one cron cycle running across every worker instance.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}

// RedisLock stores a fresh token on every acquire. Release deletes the key
// atomically and only while that token is still the value, so a lease that
// expired and was taken by another worker survives.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration

	mu    sync.Mutex
	token string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("cron: lock store required")
	case key == "":
		return nil, errors.New("cron: lock key required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	token := uuid.NewString()
	won, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if won {
		l.token = token
	}
	return won, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()

	if token == "" {
		return nil
	}
	if _, err := l.store.CompareAndDelete(ctx, l.key, token); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
