package images

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/internal/images/imagestest"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	uploaded map[string]string
	deleted  []string
	signErr  error
	ttl      time.Duration
}

func (f *fakeObjects) UploadObject(_ context.Context, bucket, object, contentType string, _ []byte) error {
	f.uploaded[bucket+"/"+object] = contentType
	return nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, bucket, object string) error {
	f.deleted = append(f.deleted, bucket+"/"+object)
	return nil
}

func (f *fakeObjects) SignedReadURL(bucket, object string, ttl time.Duration) (string, error) {
	f.ttl = ttl
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://signed/" + bucket + "/" + object, nil
}

func TestGCSStoreDelegates(t *testing.T) {
	objects := &fakeObjects{uploaded: map[string]string{}}
	store, err := NewGCSStore(objects, "pics", 0)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "pets/1/a.png", "image/png", []byte("x")))
	require.Equal(t, "image/png", objects.uploaded["pics/pets/1/a.png"])

	u, err := store.URL(ctx, "pets/1/a.png")
	require.NoError(t, err)
	require.Equal(t, "https://signed/pics/pets/1/a.png", u)
	require.Equal(t, DefaultURLTTL, objects.ttl)

	require.NoError(t, store.Delete(ctx, "pets/1/a.png"))
	require.Equal(t, []string{"pics/pets/1/a.png"}, objects.deleted)
}

func TestKey(t *testing.T) {
	id := uuid.New()
	key := Key("users", id, "jpg")
	require.True(t, strings.HasPrefix(key, "users/"+id.String()+"/"))
	require.True(t, strings.HasSuffix(key, ".jpg"))
	require.NotEqual(t, key, Key("users", id, ".jpg"))
}

func TestResolveURLDegradesToNil(t *testing.T) {
	ctx := context.Background()
	key := "pets/1/a.png"

	require.Nil(t, ResolveURL(ctx, nil, nil, &key))
	require.Nil(t, ResolveURL(ctx, imagestest.New(), nil, nil))

	fake := imagestest.New()
	got := ResolveURL(ctx, fake, nil, &key)
	require.NotNil(t, got)
	require.Equal(t, "https://images.test/"+key, *got)

	fake.URLErr = errors.New("signer down")
	require.Nil(t, ResolveURL(ctx, fake, nil, &key))
}

func TestDeleteBestEffortSwallowsErrors(t *testing.T) {
	fake := imagestest.New()
	fake.DeleteErr = imagestest.ErrUnavailable
	key := "users/1/p.png"
	DeleteBestEffort(context.Background(), fake, nil, &key)
	require.Empty(t, fake.Deleted)
}
