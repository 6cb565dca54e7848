// Package images stores user and pet pictures behind object keys.
package images

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/pkg/logger"
)

// DefaultURLTTL is how long a signed read URL stays valid.
const DefaultURLTTL = 7 * 24 * time.Hour

// Upload is a validated image received from a client.
type Upload struct {
	Data        []byte
	ContentType string
	Extension   string
}

// Store persists image bytes under opaque keys.
type Store interface {
	Upload(ctx context.Context, key, contentType string, data []byte) error
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type objectClient interface {
	UploadObject(ctx context.Context, bucket, object, contentType string, data []byte) error
	DeleteObject(ctx context.Context, bucket, object string) error
	SignedReadURL(bucket, object string, ttl time.Duration) (string, error)
}

// GCSStore is the bucket-backed Store.
type GCSStore struct {
	client objectClient
	bucket string
	ttl    time.Duration
}

// NewGCSStore wraps a GCS client. An empty bucket uses the client default.
func NewGCSStore(client objectClient, bucket string, ttl time.Duration) (*GCSStore, error) {
	if client == nil {
		return nil, errors.New("gcs client is required")
	}
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	return &GCSStore{client: client, bucket: bucket, ttl: ttl}, nil
}

func (s *GCSStore) Upload(ctx context.Context, key, contentType string, data []byte) error {
	if err := s.client.UploadObject(ctx, s.bucket, key, contentType, data); err != nil {
		return fmt.Errorf("upload image %s: %w", key, err)
	}
	return nil
}

func (s *GCSStore) URL(_ context.Context, key string) (string, error) {
	u, err := s.client.SignedReadURL(s.bucket, key, s.ttl)
	if err != nil {
		return "", fmt.Errorf("sign image url %s: %w", key, err)
	}
	return u, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	if err := s.client.DeleteObject(ctx, s.bucket, key); err != nil {
		return fmt.Errorf("delete image %s: %w", key, err)
	}
	return nil
}

// Key builds a fresh object key such as "pets/<id>/<random>.png".
func Key(kind string, ownerID uuid.UUID, extension string) string {
	ext := strings.TrimSpace(extension)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s/%s/%s%s", kind, ownerID, uuid.NewString(), ext)
}

// ResolveURL signs key for reading. Failures are logged and yield nil so
// that responses degrade to "no image".
func ResolveURL(ctx context.Context, store Store, logg *logger.Logger, key *string) *string {
	if store == nil || key == nil || *key == "" {
		return nil
	}
	u, err := store.URL(ctx, *key)
	if err != nil {
		if logg != nil {
			logg.Warn(logg.WithFields(ctx, map[string]any{"image_key": *key, "error": err.Error()}), "image.url_failed")
		}
		return nil
	}
	return &u
}

// DeleteBestEffort removes key and only logs failures.
func DeleteBestEffort(ctx context.Context, store Store, logg *logger.Logger, key *string) {
	if store == nil || key == nil || *key == "" {
		return
	}
	if err := store.Delete(ctx, *key); err != nil && logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{"image_key": *key, "error": err.Error()}), "image.delete_failed")
	}
}
