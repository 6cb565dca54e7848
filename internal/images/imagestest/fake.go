// Package imagestest provides an in-memory images.Store for tests.
package imagestest

import (
	"context"
	"errors"
	"sync"
)

// Fake records uploads and deletes. Set the *Err fields to force failures.
type Fake struct {
	mu        sync.Mutex
	Objects   map[string][]byte
	Deleted   []string
	UploadErr error
	URLErr    error
	DeleteErr error
}

func New() *Fake {
	return &Fake{Objects: map[string][]byte{}}
}

func (f *Fake) Upload(_ context.Context, key, _ string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UploadErr != nil {
		return f.UploadErr
	}
	f.Objects[key] = append([]byte(nil), data...)
	return nil
}

func (f *Fake) URL(_ context.Context, key string) (string, error) {
	if f.URLErr != nil {
		return "", f.URLErr
	}
	return "https://images.test/" + key, nil
}

func (f *Fake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.Deleted = append(f.Deleted, key)
	delete(f.Objects, key)
	return nil
}

// Has reports whether key is currently stored.
func (f *Fake) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Objects[key]
	return ok
}

// ErrUnavailable is a convenient injected failure.
var ErrUnavailable = errors.New("image store unavailable")
