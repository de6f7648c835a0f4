// Package objectstore abstracts binary object storage for media migration:
// existence checks, byte download/upload with content-type metadata, public
// access marking, and the canonical public URL scheme.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrObjectNotFound is returned when the requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Object is a downloaded object's bytes plus content-type metadata.
type Object struct {
	Data        []byte
	ContentType string
}

// Storage is the object storage surface consumed by the media migrator.
type Storage interface {
	// Exists reports whether bucket/path holds an object.
	Exists(ctx context.Context, bucket, path string) (bool, error)
	// Download returns the object bytes and content type, or ErrObjectNotFound.
	Download(ctx context.Context, bucket, path string) (Object, error)
	// Upload writes the object under bucket/path with the given content type.
	Upload(ctx context.Context, bucket, path string, obj Object) error
	// MakePublic marks the object world-readable.
	MakePublic(ctx context.Context, bucket, path string) error
}

// ObjectRef is a bucket/path pair extracted from a download URL.
type ObjectRef struct {
	Bucket string
	Path   string
}

// PublicURL builds the canonical public URL {base}/{bucket}/{objectPath}.
func PublicURL(base, bucket, path string) string {
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + path
}

// ParseDownloadURL extracts the bucket and object path from a storage download
// URL under base. URLs on any other host, or without a bucket/path shape,
// return false: they are external references and not ours to migrate.
func ParseDownloadURL(base, raw string) (ObjectRef, bool) {
	baseURL, err := url.Parse(base)
	if err != nil || baseURL.Host == "" {
		return ObjectRef{}, false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host != baseURL.Host {
		return ObjectRef{}, false
	}
	trimmed := strings.Trim(u.Path, "/")
	bucket, path, ok := strings.Cut(trimmed, "/")
	if !ok || bucket == "" || path == "" {
		return ObjectRef{}, false
	}
	// Object paths may arrive percent-encoded (e.g. folder%2Ffile.jpg).
	if decoded, err := url.PathUnescape(path); err == nil {
		path = decoded
	}
	return ObjectRef{Bucket: bucket, Path: path}, true
}

// DefaultContentType is applied to uploads whose source object has no
// content-type metadata.
const DefaultContentType = "image/jpeg"

func (r ObjectRef) String() string {
	return fmt.Sprintf("%s/%s", r.Bucket, r.Path)
}
