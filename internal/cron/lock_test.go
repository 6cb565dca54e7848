package cron

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type memoryLockStore struct {
	values map[string]string
	err    error
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryLockStore) CompareAndDelete(_ context.Context, key, expected string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.values[key] != expected {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

const testLockKey = "petcare:lock:cron-worker"

func TestRedisLockIsExclusive(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	first, err := NewRedisLock(store, testLockKey, 0)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	second, _ := NewRedisLock(store, testLockKey, time.Minute)

	ctx := context.Background()
	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire ok=%v err=%v", ok, err)
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatal("second worker acquired a held lock")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release without ownership: %v", err)
	}
	if _, held := store.values[testLockKey]; !held {
		t.Fatal("non-owner released the lock")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatal("lock not reusable after release")
	}
}

func TestRedisLockKeepsTakenOverLease(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	lock, _ := NewRedisLock(store, testLockKey, time.Minute)
	ctx := context.Background()
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("acquire failed")
	}
	store.values[testLockKey] = "other-worker"

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values[testLockKey] != "other-worker" {
		t.Fatal("released a lease owned by another worker")
	}
}

func TestRedisLockStoreErrors(t *testing.T) {
	if _, err := NewRedisLock(nil, testLockKey, 0); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewRedisLock(&memoryLockStore{}, "", 0); err == nil {
		t.Fatal("expected error for empty key")
	}

	store := &memoryLockStore{values: map[string]string{}, err: errors.New("connection refused")}
	lock, _ := NewRedisLock(store, testLockKey, time.Minute)
	if _, err := lock.Acquire(context.Background()); err == nil {
		t.Fatal("expected acquire error")
	}
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release after failed acquire: %v", err)
	}
}
