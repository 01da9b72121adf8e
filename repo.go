package biblioteca

import (
	"context"
	"io"
)

// BookRepo defines the interface for book metadata persistence.
// Implementations must handle concurrent access safely; per-row atomicity
// of the underlying store is relied on to resolve delete races.
//
// All methods accept a context for cancellation and timeout control.
type BookRepo interface {
	// Create persists a new book record and returns it with the
	// store-assigned ID and upload date.
	Create(ctx context.Context, b NewBook) (Book, error)

	// Get retrieves a book record by ID.
	// Returns ErrNotFound if no such record exists.
	Get(ctx context.Context, id int64) (Book, error)

	// List returns all book records ordered by upload date descending
	// (newest first). The result is a snapshot, freshly computed per call.
	List(ctx context.Context) ([]Book, error)

	// Delete removes a book record by ID.
	// Returns ErrNotFound if no such record exists; a concurrent delete
	// of the same ID therefore fails cleanly on one side.
	Delete(ctx context.Context, id int64) error

	// Keys returns every storage key referenced by any record, book and
	// cover keys alike. Used to reconcile storage against metadata.
	Keys(ctx context.Context) (map[string]bool, error)
}

// BlobStore defines the interface for blob persistence. Implementations
// cover the local filesystem and S3-compatible object stores; the
// LibraryService depends only on this interface.
//
// Keys are generated per upload with NewStorageKey, so concurrent writes
// never contend on the same key.
type BlobStore interface {
	// Put stores content under key, overwriting any previous blob.
	// Safe to retry with the same key.
	Put(ctx context.Context, key string, content io.Reader) (PutResult, error)

	// Get retrieves raw blob content for proxied delivery.
	// Returns ErrNotFound if the key is absent.
	//
	// The caller is responsible for closing the returned ReadCloser.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Resolve returns a retrieval reference for key without touching the
	// backend: a proxied marker for the filesystem store, a direct URL
	// derived from key and backend configuration for object stores.
	Resolve(key string) Reference

	// Delete removes a blob. Returns ErrNotFound if the key is absent;
	// callers treat that as an acceptable outcome.
	Delete(ctx context.Context, key string) error

	// Keys returns the storage keys of all blobs currently held by the
	// backend. Used by orphan sweeps; can be expensive on large stores.
	Keys(ctx context.Context) ([]string, error)
}
