package docstore

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store used in constrained/mock mode and tests.
// It records the size of every committed batch so tests can assert chunking.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
	batchSizes  []int
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]Document)}
}

// Get returns the document or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDocument(doc), nil
}

// Create writes a new document under the given id.
func (s *MemoryStore) Create(ctx context.Context, collection, id string, data Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(collection, id, data, false)
	return nil
}

// Set writes a document; merge keeps existing fields not present in data.
func (s *MemoryStore) Set(ctx context.Context, collection, id string, data Document, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(collection, id, data, merge)
	return nil
}

// FindByField returns up to limit documents whose field equals value, ordered by id.
func (s *MemoryStore) FindByField(ctx context.Context, collection, field string, value any, limit int) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.collections[collection]))
	for id := range s.collections[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Document
	for _, id := range ids {
		doc := s.collections[collection][id]
		if doc[field] != value {
			continue
		}
		copied := cloneDocument(doc)
		copied["id"] = id
		out = append(out, copied)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Commit applies writes atomically, enforcing MaxBatchWrites.
func (s *MemoryStore) Commit(ctx context.Context, writes []Write) error {
	if len(writes) > MaxBatchWrites {
		return ErrBatchTooLarge
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range writes {
		s.put(w.Collection, w.ID, w.Data, w.Merge)
	}
	s.batchSizes = append(s.batchSizes, len(writes))
	return nil
}

// BatchSizes returns the sizes of all committed batches, in order.
func (s *MemoryStore) BatchSizes() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, len(s.batchSizes))
	copy(out, s.batchSizes)
	return out
}

// Count returns the number of documents in a collection.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func (s *MemoryStore) put(collection, id string, data Document, merge bool) {
	col, ok := s.collections[collection]
	if !ok {
		col = make(map[string]Document)
		s.collections[collection] = col
	}
	if merge {
		existing, ok := col[id]
		if !ok {
			existing = make(Document)
		}
		merged := cloneDocument(existing)
		for k, v := range data {
			merged[k] = v
		}
		col[id] = merged
		return
	}
	col[id] = cloneDocument(data)
}

func cloneDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
