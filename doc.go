// Package biblioteca provides a personal digital-library service with
// pluggable blob storage backends and relational book metadata.
//
// Books and their optional cover images are written to a BlobStore (local
// filesystem or an S3-compatible object store) under collision-free
// generated storage keys, while one metadata row per book is kept behind
// the BookRepo interface (PostgreSQL, SQLite).
//
// # Key Components
//
//   - LibraryService: orchestrates upload, listing, content delivery and
//     deletion, keeping blobs and metadata consistent across failures
//   - BookRepo: interface for book metadata persistence
//   - BlobStore: interface for blob operations (filesystem, S3)
//   - NewStorageKey: collision-resistant storage-key generation
//
// # Example Usage
//
//	svc := biblioteca.NewLibraryService(repo, books, covers, biblioteca.ServiceConfig{})
//
//	// Upload a book with a cover
//	book, err := svc.Upload(ctx, biblioteca.UploadRequest{
//	    BookFilename:  "dune.epub",
//	    Book:          bookReader,
//	    CoverFilename: "dune.jpg",
//	    Cover:         coverReader,
//	})
//
//	// Serve its content
//	content, err := svc.OpenBook(ctx, book.StorageKey)
//
// See the http package for the REST API and the database packages for
// metadata backend implementations.
package biblioteca
