package docstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// FirestoreStore implements Store over a Cloud Firestore database.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore connects to the Firestore project. credentialsFile may be
// empty, in which case ambient credentials are used.
func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore connect: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

// Close releases the underlying client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// Get returns the document or ErrNotFound.
func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if snap != nil && !snap.Exists() {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return Document(snap.Data()), nil
}

// Create writes a new document under the given id.
func (s *FirestoreStore) Create(ctx context.Context, collection, id string, data Document) error {
	if _, err := s.client.Collection(collection).Doc(id).Create(ctx, map[string]any(data)); err != nil {
		return fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	return nil
}

// Set writes a document; merge selects MergeAll semantics.
func (s *FirestoreStore) Set(ctx context.Context, collection, id string, data Document, merge bool) error {
	doc := s.client.Collection(collection).Doc(id)
	var err error
	if merge {
		_, err = doc.Set(ctx, map[string]any(data), firestore.MergeAll)
	} else {
		_, err = doc.Set(ctx, map[string]any(data))
	}
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

// FindByField returns up to limit documents whose field equals value.
func (s *FirestoreStore) FindByField(ctx context.Context, collection, field string, value any, limit int) ([]Document, error) {
	query := s.client.Collection(collection).Where(field, "==", value)
	if limit > 0 {
		query = query.Limit(limit)
	}
	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query %s where %s: %w", collection, field, err)
		}
		doc := Document(snap.Data())
		doc["id"] = snap.Ref.ID
		out = append(out, doc)
	}
	return out, nil
}

// Commit applies writes as one atomic batch, enforcing MaxBatchWrites.
func (s *FirestoreStore) Commit(ctx context.Context, writes []Write) error {
	if len(writes) > MaxBatchWrites {
		return ErrBatchTooLarge
	}
	batch := s.client.Batch()
	for _, w := range writes {
		doc := s.client.Collection(w.Collection).Doc(w.ID)
		if w.Merge {
			batch.Set(doc, map[string]any(w.Data), firestore.MergeAll)
		} else {
			batch.Set(doc, map[string]any(w.Data))
		}
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch of %d: %w", len(writes), err)
	}
	return nil
}
