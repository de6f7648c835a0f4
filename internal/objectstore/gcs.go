package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStorage implements Storage over Google Cloud Storage.
type GCSStorage struct {
	client *storage.Client
}

// NewGCSStorage connects a Cloud Storage client. credentialsFile may be empty.
func NewGCSStorage(ctx context.Context, credentialsFile string) (*GCSStorage, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage connect: %w", err)
	}
	return &GCSStorage{client: client}, nil
}

// Close releases the underlying client.
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// Exists reports whether bucket/path holds an object.
func (s *GCSStorage) Exists(ctx context.Context, bucket, path string) (bool, error) {
	_, err := s.client.Bucket(bucket).Object(path).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s/%s: %w", bucket, path, err)
	}
	return true, nil
}

// Download returns the object bytes and content type, or ErrObjectNotFound.
func (s *GCSStorage) Download(ctx context.Context, bucket, path string) (Object, error) {
	reader, err := s.client.Bucket(bucket).Object(path).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return Object{}, ErrObjectNotFound
	}
	if err != nil {
		return Object{}, fmt.Errorf("open %s/%s: %w", bucket, path, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return Object{}, fmt.Errorf("read %s/%s: %w", bucket, path, err)
	}
	return Object{Data: data, ContentType: reader.Attrs.ContentType}, nil
}

// Upload writes the object under bucket/path with its content type.
func (s *GCSStorage) Upload(ctx context.Context, bucket, path string, obj Object) error {
	writer := s.client.Bucket(bucket).Object(path).NewWriter(ctx)
	writer.ContentType = obj.ContentType
	if _, err := writer.Write(obj.Data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("write %s/%s: %w", bucket, path, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("flush %s/%s: %w", bucket, path, err)
	}
	return nil
}

// MakePublic grants AllUsers read access on the object.
func (s *GCSStorage) MakePublic(ctx context.Context, bucket, path string) error {
	acl := s.client.Bucket(bucket).Object(path).ACL()
	if err := acl.Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return fmt.Errorf("make public %s/%s: %w", bucket, path, err)
	}
	return nil
}
