package biblioteca

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// LibraryService orchestrates the book lifecycle: upload (validate, store
// content, record metadata), listing, content delivery resolution, and
// deletion (remove content, remove metadata). Books and covers live in
// separate blob namespaces.
type LibraryService struct {
	repo           BookRepo
	books          BlobStore
	covers         BlobStore
	cleanupTimeout time.Duration
}

// ServiceConfig holds configuration options for LibraryService.
type ServiceConfig struct {
	CleanupTimeout time.Duration // Timeout for best-effort blob cleanup (default: 30s)
}

func NewLibraryService(repo BookRepo, books, covers BlobStore, cfg ServiceConfig) *LibraryService {
	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}
	return &LibraryService{
		repo:           repo,
		books:          books,
		covers:         covers,
		cleanupTimeout: cleanupTimeout,
	}
}

// Upload validates, stores, and records a new book.
//
// The method performs the following steps:
//  1. Validates the book extension against the allow-list and, when a
//     cover is supplied, the cover extension against the image allow-list.
//     Both checks run before any I/O; either failing aborts the whole
//     upload with ErrUnsupportedFormat.
//  2. Generates a storage key and writes the book blob. A write failure
//     aborts with ErrStorageWrite and no metadata record is created.
//  3. Writes the cover blob if supplied. A cover write failure is logged
//     and the book continues without a cover key.
//  4. Resolves the title: explicit non-blank value, else derived from the
//     book filename with the extension stripped.
//  5. Persists the book record. On failure the just-written blobs are
//     removed best-effort and the upload fails with ErrPersistence.
//
// Data consistency: a record exists iff its book blob was written. Blob
// cleanup runs on a background context with the configured timeout so it
// completes even when the request context is already cancelled.
func (s *LibraryService) Upload(ctx context.Context, req UploadRequest) (Book, error) {
	if err := ctx.Err(); err != nil {
		return Book{}, fmt.Errorf("upload book: %w", err)
	}

	if req.BookFilename == "" || req.Book == nil {
		return Book{}, fmt.Errorf("upload book: %w: no book file supplied", ErrUnsupportedFormat)
	}

	if !IsAllowedBookFormat(req.BookFilename) {
		return Book{}, fmt.Errorf("upload book %q: %w", req.BookFilename, ErrUnsupportedFormat)
	}

	hasCover := req.Cover != nil && req.CoverFilename != ""
	if hasCover && !IsAllowedCoverFormat(req.CoverFilename) {
		return Book{}, fmt.Errorf("upload cover %q: %w", req.CoverFilename, ErrUnsupportedFormat)
	}

	bookKey := NewStorageKey(req.BookFilename)
	if _, err := s.books.Put(ctx, bookKey, req.Book); err != nil {
		return Book{}, fmt.Errorf("upload book %q: %w: %w", req.BookFilename, ErrStorageWrite, err)
	}

	coverKey := ""
	if hasCover {
		key := NewStorageKey(req.CoverFilename)
		if _, err := s.covers.Put(ctx, key, req.Cover); err != nil {
			// A missing cover degrades to the placeholder downstream.
			slog.Warn("cover write failed, continuing without cover",
				"book", req.BookFilename, "cover", req.CoverFilename, "err", err)
		} else {
			coverKey = key
		}
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DeriveTitle(req.BookFilename)
	}

	book, err := s.repo.Create(ctx, NewBook{
		Title:            title,
		StorageKey:       bookKey,
		OriginalFilename: req.BookFilename,
		CoverStorageKey:  coverKey,
	})
	if err != nil {
		s.cleanupBlobs(bookKey, coverKey)
		return Book{}, fmt.Errorf("upload book %q: %w: %w", req.BookFilename, ErrPersistence, err)
	}

	return book, nil
}

// cleanupBlobs removes blobs written by an upload whose metadata commit
// failed. Runs on a background context since the request context may be
// cancelled; failures leave an orphaned blob, which is surfaced in logs
// and reclaimed by SweepOrphans.
func (s *LibraryService) cleanupBlobs(bookKey, coverKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
	defer cancel()

	if err := s.books.Delete(ctx, bookKey); err != nil && !errors.Is(err, ErrNotFound) {
		slog.Error("orphaned book blob: cleanup failed after metadata error", "key", bookKey, "err", err)
	}
	if coverKey != "" {
		if err := s.covers.Delete(ctx, coverKey); err != nil && !errors.Is(err, ErrNotFound) {
			slog.Error("orphaned cover blob: cleanup failed after metadata error", "key", coverKey, "err", err)
		}
	}
}

// List returns all books ordered by upload date descending.
func (s *LibraryService) List(ctx context.Context) ([]Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	books, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w: %w", ErrPersistence, err)
	}

	return books, nil
}

// Get retrieves a single book record by ID.
func (s *LibraryService) Get(ctx context.Context, id int64) (Book, error) {
	if err := ctx.Err(); err != nil {
		return Book{}, fmt.Errorf("get book: %w", err)
	}

	book, err := s.repo.Get(ctx, id)
	if err != nil {
		return Book{}, fmt.Errorf("get book %d: %w", id, err)
	}

	return book, nil
}

// OpenBook resolves delivery of a book's content by storage key.
//
// A key that fails validation (traversal sequences, separators) is
// rejected with ErrAccessDenied before any backend call. The filesystem
// backend always proxies the bytes. Object-store backends redirect to a
// backend-native URL, except for PDFs, which are fetched server-side and
// re-emitted inline so the browser renders them instead of downloading.
func (s *LibraryService) OpenBook(ctx context.Context, key string) (*Content, error) {
	return s.open(ctx, s.books, key)
}

// OpenCover resolves delivery of a cover image by storage key. Callers
// fall back to a placeholder image on any error except ErrAccessDenied.
func (s *LibraryService) OpenCover(ctx context.Context, key string) (*Content, error) {
	return s.open(ctx, s.covers, key)
}

func (s *LibraryService) open(ctx context.Context, store BlobStore, key string) (*Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("open %q: %w", key, err)
	}

	if !IsValidKey(key) {
		return nil, fmt.Errorf("open %q: %w", key, ErrAccessDenied)
	}

	ref := store.Resolve(key)
	if !ref.Proxied && !IsPDF(key) {
		return &Content{
			RedirectURL: ref.URL,
			ContentType: ContentTypeForKey(key),
			Filename:    key,
		}, nil
	}

	body, err := store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("open %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("open %q: %w: %w", key, ErrStorageRead, err)
	}

	return &Content{
		Body:        body,
		ContentType: ContentTypeForKey(key),
		Filename:    key,
		Inline:      IsPDF(key),
	}, nil
}

// Delete removes a book: blobs best-effort first, then the metadata row.
//
// Returns ErrNotFound when no record exists. Blob deletion failures are
// logged but never block the operation; "already absent" is success. A
// metadata delete failure after the blobs are gone fails the operation
// with ErrPersistence. The blobs are not restorable at that point; the
// inconsistency window is accepted and surfaced via logs.
func (s *LibraryService) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	book, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}

	if err := s.books.Delete(ctx, book.StorageKey); err != nil && !errors.Is(err, ErrNotFound) {
		slog.Warn("book blob delete failed", "id", id, "key", book.StorageKey, "err", err)
	}

	if book.CoverStorageKey != "" {
		if err := s.covers.Delete(ctx, book.CoverStorageKey); err != nil && !errors.Is(err, ErrNotFound) {
			slog.Warn("cover blob delete failed", "id", id, "key", book.CoverStorageKey, "err", err)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("delete book %d: %w", id, ErrNotFound)
		}
		return fmt.Errorf("delete book %d: %w: %w", id, ErrPersistence, err)
	}

	return nil
}

// SweepOrphans removes blobs that no book record references: leftovers of
// failed cleanup after metadata errors. It compares the keys held by both
// blob namespaces against the keys referenced by metadata and deletes the
// difference. Returns the number of blobs removed.
//
// Blobs written by uploads still in flight are a theoretical casualty;
// run sweeps when the service is idle.
func (s *LibraryService) SweepOrphans(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("sweep orphans: %w", err)
	}

	referenced, err := s.repo.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep orphans: %w: %w", ErrPersistence, err)
	}

	removed := 0
	for _, store := range []BlobStore{s.books, s.covers} {
		keys, listErr := store.Keys(ctx)
		if listErr != nil {
			return removed, fmt.Errorf("sweep orphans: %w: %w", ErrStorageRead, listErr)
		}

		for _, key := range keys {
			if referenced[key] {
				continue
			}

			delErr := store.Delete(ctx, key)
			if delErr != nil && !errors.Is(delErr, ErrNotFound) {
				return removed, fmt.Errorf("sweep orphans %q: %w", key, delErr)
			}

			slog.Info("removed orphaned blob", "key", key)
			removed++
		}
	}

	return removed, nil
}
