// Package docstore abstracts the target document store: get/create/merge writes
// on schemaless documents plus a bounded multi-document batch commit.
package docstore

import (
	"context"
	"errors"
)

// MaxBatchWrites is the provider-imposed ceiling on documents per batch commit.
// Callers with larger write sets must chunk before calling Commit.
const MaxBatchWrites = 500

// Errors returned by document store operations.
var (
	ErrNotFound      = errors.New("document not found")
	ErrBatchTooLarge = errors.New("batch exceeds max writes")
)

// Document is a schemaless document payload keyed by field name.
type Document map[string]any

// Write is one pending document write inside a batch.
type Write struct {
	Collection string
	ID         string
	Data       Document
	// Merge applies upsert semantics (existing fields not in Data survive).
	Merge bool
}

// Store is the target document store surface consumed by the migration engine.
type Store interface {
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Create writes a new document under the given id.
	Create(ctx context.Context, collection, id string, data Document) error
	// Set writes a document; merge selects upsert semantics.
	Set(ctx context.Context, collection, id string, data Document, merge bool) error
	// FindByField returns up to limit documents whose field equals value.
	// Each returned document carries its id under the "id" key.
	FindByField(ctx context.Context, collection, field string, value any, limit int) ([]Document, error)
	// Commit applies writes atomically. Returns ErrBatchTooLarge when the
	// slice exceeds MaxBatchWrites.
	Commit(ctx context.Context, writes []Write) error
}

// StringField reads a string field from a document, "" when absent or not a string.
func StringField(doc Document, field string) string {
	if v, ok := doc[field].(string); ok {
		return v
	}
	return ""
}
