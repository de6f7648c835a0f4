package objectstore

import (
	"context"
	"sync"
)

// MemoryStorage is an in-memory Storage used in constrained/mock mode and tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]Object
	public  map[string]bool
}

// NewMemoryStorage creates an empty in-memory object storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string]Object),
		public:  make(map[string]bool),
	}
}

// Exists reports whether bucket/path holds an object.
func (s *MemoryStorage) Exists(ctx context.Context, bucket, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[bucket+"/"+path]
	return ok, nil
}

// Download returns the stored object or ErrObjectNotFound.
func (s *MemoryStorage) Download(ctx context.Context, bucket, path string) (Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[bucket+"/"+path]
	if !ok {
		return Object{}, ErrObjectNotFound
	}
	return obj, nil
}

// Upload stores the object under bucket/path.
func (s *MemoryStorage) Upload(ctx context.Context, bucket, path string, obj Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+path] = obj
	return nil
}

// MakePublic marks the object public.
func (s *MemoryStorage) MakePublic(ctx context.Context, bucket, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.public[bucket+"/"+path] = true
	return nil
}

// IsPublic reports whether the object was marked public.
func (s *MemoryStorage) IsPublic(bucket, path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.public[bucket+"/"+path]
}
