// Package media migrates referenced binary objects from the legacy storage
// bucket to the target bucket, preserving content type and public access.
package media

import (
	"context"
	"log/slog"
	"strings"

	"github.com/loreline/loreline/internal/objectstore"
)

// Migrator copies one referenced object between buckets. Migration is strictly
// best-effort: any failure falls back to returning the input URL so a broken
// media reference can never abort an import.
type Migrator struct {
	storage      objectstore.Storage
	sourceBucket string
	targetBucket string
	baseURL      string
	logger       *slog.Logger
}

// NewMigrator creates a media migrator. storage may be nil (constrained/mock
// mode), in which case Migrate passes every URL through unchanged.
func NewMigrator(log *slog.Logger, storage objectstore.Storage, sourceBucket, targetBucket, baseURL string) *Migrator {
	if log == nil {
		log = slog.Default()
	}
	return &Migrator{
		storage:      storage,
		sourceBucket: sourceBucket,
		targetBucket: targetBucket,
		baseURL:      baseURL,
		logger:       log.With(slog.String("service", "media")),
	}
}

// Migrate copies the object behind sourceURL into the target bucket at the
// same relative path and returns the new public URL. URLs that are empty, not
// ours, or whose source object is gone are returned unchanged.
func (m *Migrator) Migrate(ctx context.Context, sourceURL string) string {
	if strings.TrimSpace(sourceURL) == "" || m.storage == nil {
		return sourceURL
	}
	ref, ok := objectstore.ParseDownloadURL(m.baseURL, sourceURL)
	if !ok {
		return sourceURL
	}

	exists, err := m.storage.Exists(ctx, ref.Bucket, ref.Path)
	if err != nil {
		m.logger.Warn("media existence check failed", slog.String("object", ref.String()), slog.Any("error", err))
		return sourceURL
	}
	if !exists {
		m.logger.Debug("media source object missing", slog.String("object", ref.String()))
		return sourceURL
	}

	obj, err := m.storage.Download(ctx, ref.Bucket, ref.Path)
	if err != nil {
		m.logger.Warn("media download failed", slog.String("object", ref.String()), slog.Any("error", err))
		return sourceURL
	}
	if strings.TrimSpace(obj.ContentType) == "" {
		obj.ContentType = objectstore.DefaultContentType
	}

	if err := m.storage.Upload(ctx, m.targetBucket, ref.Path, obj); err != nil {
		m.logger.Warn("media upload failed", slog.String("object", ref.String()), slog.Any("error", err))
		return sourceURL
	}
	if err := m.storage.MakePublic(ctx, m.targetBucket, ref.Path); err != nil {
		m.logger.Warn("media make public failed", slog.String("object", ref.String()), slog.Any("error", err))
		return sourceURL
	}

	migrated := objectstore.PublicURL(m.baseURL, m.targetBucket, ref.Path)
	m.logger.Debug("media migrated", slog.String("from", sourceURL), slog.String("to", migrated))
	return migrated
}
