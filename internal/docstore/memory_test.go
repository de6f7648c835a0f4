package docstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreMerge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Create(ctx, "users", "a", Document{"email": "a@example.com", "bio": "hi"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Set(ctx, "users", "a", Document{"externalId": "src-1"}, true); err != nil {
		t.Fatalf("merge set: %v", err)
	}

	doc, err := store.Get(ctx, "users", "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc["email"] != "a@example.com" || doc["externalId"] != "src-1" {
		t.Fatalf("merge lost fields: %+v", doc)
	}

	// Non-merge set replaces the document.
	if err := store.Set(ctx, "users", "a", Document{"email": "b@example.com"}, false); err != nil {
		t.Fatalf("set: %v", err)
	}
	doc, _ = store.Get(ctx, "users", "a")
	if _, ok := doc["externalId"]; ok {
		t.Fatalf("replace kept stale field: %+v", doc)
	}
}

func TestMemoryStoreFindByField(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Create(ctx, "users", "a", Document{"email": "a@example.com"})
	_ = store.Create(ctx, "users", "b", Document{"email": "a@example.com"})
	_ = store.Create(ctx, "users", "c", Document{"email": "c@example.com"})

	docs, err := store.FindByField(ctx, "users", "email", "a@example.com", 1)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("limit ignored, got %d docs", len(docs))
	}
	if StringField(docs[0], "id") == "" {
		t.Fatalf("result missing id: %+v", docs[0])
	}

	docs, _ = store.FindByField(ctx, "users", "email", "a@example.com", 0)
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}
}

func TestMemoryStoreCommitBound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	oversize := make([]Write, MaxBatchWrites+1)
	for i := range oversize {
		oversize[i] = Write{Collection: "links", ID: string(rune('a' + i%26)), Data: Document{}}
	}
	if err := store.Commit(ctx, oversize); !errors.Is(err, ErrBatchTooLarge) {
		t.Fatalf("Commit oversize error = %v, want ErrBatchTooLarge", err)
	}

	if err := store.Commit(ctx, oversize[:MaxBatchWrites]); err != nil {
		t.Fatalf("Commit at ceiling: %v", err)
	}
	sizes := store.BatchSizes()
	if len(sizes) != 1 || sizes[0] != MaxBatchWrites {
		t.Fatalf("batch sizes = %v", sizes)
	}
}

func TestMemoryStoreGetNotFound(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()
	if _, err := store.Get(context.Background(), "users", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
