package media_test

import (
	"context"
	"errors"
	"testing"

	"github.com/loreline/loreline/internal/media"
	"github.com/loreline/loreline/internal/objectstore"
)

const (
	baseURL      = "https://storage.example"
	sourceBucket = "legacy-media"
	targetBucket = "new-media"
)

func newMigrator(storage objectstore.Storage) *media.Migrator {
	return media.NewMigrator(nil, storage, sourceBucket, targetBucket, baseURL)
}

func TestMigratePassthrough(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	storage := objectstore.NewMemoryStorage()
	m := newMigrator(storage)

	tests := []struct {
		name string
		url  string
	}{
		{name: "empty url", url: ""},
		{name: "external url", url: "https://cdn.elsewhere.net/a/b.jpg"},
		{name: "missing source object", url: baseURL + "/legacy-media/avatars/gone.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Migrate(ctx, tt.url); got != tt.url {
				t.Fatalf("Migrate(%q) = %q, want unchanged", tt.url, got)
			}
		})
	}
}

func TestMigrateNilStorage(t *testing.T) {
	t.Parallel()
	m := newMigrator(nil)
	url := baseURL + "/legacy-media/avatars/u1.jpg"
	if got := m.Migrate(context.Background(), url); got != url {
		t.Fatalf("Migrate() = %q, want unchanged", got)
	}
}

func TestMigrateCopiesObject(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	storage := objectstore.NewMemoryStorage()
	if err := storage.Upload(ctx, sourceBucket, "avatars/u1.jpg", objectstore.Object{
		Data:        []byte("jpeg-bytes"),
		ContentType: "image/png",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	m := newMigrator(storage)

	got := m.Migrate(ctx, baseURL+"/legacy-media/avatars/u1.jpg")
	want := baseURL + "/new-media/avatars/u1.jpg"
	if got != want {
		t.Fatalf("Migrate() = %q, want %q", got, want)
	}

	obj, err := storage.Download(ctx, targetBucket, "avatars/u1.jpg")
	if err != nil {
		t.Fatalf("target object missing: %v", err)
	}
	if string(obj.Data) != "jpeg-bytes" || obj.ContentType != "image/png" {
		t.Fatalf("target object = %q %q", obj.Data, obj.ContentType)
	}
	if !storage.IsPublic(targetBucket, "avatars/u1.jpg") {
		t.Fatalf("target object not public")
	}
}

func TestMigrateDefaultsContentType(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	storage := objectstore.NewMemoryStorage()
	_ = storage.Upload(ctx, sourceBucket, "covers/c1", objectstore.Object{Data: []byte("x")})
	m := newMigrator(storage)

	m.Migrate(ctx, baseURL+"/legacy-media/covers/c1")
	obj, err := storage.Download(ctx, targetBucket, "covers/c1")
	if err != nil {
		t.Fatalf("target object missing: %v", err)
	}
	if obj.ContentType != objectstore.DefaultContentType {
		t.Fatalf("content type = %q, want %q", obj.ContentType, objectstore.DefaultContentType)
	}
}

// failingStorage fails every upload to exercise the fallback path.
type failingStorage struct {
	*objectstore.MemoryStorage
}

func (s failingStorage) Upload(ctx context.Context, bucket, path string, obj objectstore.Object) error {
	return errors.New("upload rejected")
}

func TestMigrateFallsBackOnUploadFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	inner := objectstore.NewMemoryStorage()
	_ = inner.Upload(ctx, sourceBucket, "avatars/u1.jpg", objectstore.Object{Data: []byte("x")})
	m := newMigrator(failingStorage{inner})

	url := baseURL + "/legacy-media/avatars/u1.jpg"
	if got := m.Migrate(ctx, url); got != url {
		t.Fatalf("Migrate() = %q, want original on failure", got)
	}
}
