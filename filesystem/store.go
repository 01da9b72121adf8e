// Package filesystem provides a local filesystem blob store for biblioteca.
// It supports atomic writes using temp files, SHA256-based etags, and
// sandboxed access rooted at a single directory.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/google/uuid"

	biblioteca "github.com/K3v1nD14s/Biblioteca"
)

// Store provides filesystem blob operations for one namespace (books or
// covers). Every read is proxied; Resolve never yields a direct URL.
type Store struct {
	root *os.Root
}

// NewBlobStore creates a new Store rooted at the given directory.
// The root provides sandboxed file operations; combined with key
// validation it keeps canonicalized paths inside the namespace even if a
// key were ever attacker-controlled.
func NewBlobStore(root *os.Root) *Store {
	return &Store{root: root}
}

// Open opens dir as a storage root, creating it first when missing.
func Open(dir string) (*os.Root, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open storage root: %w", err)
	}

	return root, nil
}

// checkKey rejects keys that would escape the root before any I/O.
func checkKey(key string) error {
	if !biblioteca.IsValidKey(key) {
		return fmt.Errorf("key %q: %w", key, biblioteca.ErrAccessDenied)
	}
	return nil
}

// Get opens a blob for reading. Returns biblioteca.ErrNotFound if the key
// is absent and biblioteca.ErrAccessDenied if it escapes the root.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := checkKey(key); err != nil {
		return nil, err
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, biblioteca.ErrNotFound
		}
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("key %q: %w", key, biblioteca.ErrAccessDenied)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}

	return f, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Put atomically writes content under key using a temp file and rename.
// Overwrites any previous blob at the same key, so retries are safe. The
// returned PutResult carries the byte count and SHA256-based etag. The
// operation respects context cancellation.
func (s *Store) Put(ctx context.Context, key string, content io.Reader) (biblioteca.PutResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return biblioteca.PutResult{}, ctxErr
	}

	if err := checkKey(key); err != nil {
		return biblioteca.PutResult{}, err
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return biblioteca.PutResult{}, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(t.Name()); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	h := sha256.New()
	w := io.MultiWriter(h, t)

	bytesWritten, err := io.Copy(w, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return biblioteca.PutResult{}, fmt.Errorf("could not copy blob contents: %w", err)
	}

	err = t.Sync()
	if err != nil {
		return biblioteca.PutResult{}, fmt.Errorf("could not sync written blob: %w", err)
	}

	if renameErr := s.root.Rename(tmpFile, key); renameErr != nil {
		return biblioteca.PutResult{}, fmt.Errorf("failed to rename blob: %w", renameErr)
	}

	etag := hex.EncodeToString(h.Sum(nil))
	success = true

	return biblioteca.PutResult{BytesWritten: bytesWritten, Etag: etag}, nil
}

// Resolve marks every key as proxied: local blobs have no URL of their
// own and are always streamed through the service.
func (s *Store) Resolve(key string) biblioteca.Reference {
	return biblioteca.Reference{Proxied: true}
}

// Delete removes a blob. Returns biblioteca.ErrNotFound if the key is absent.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := checkKey(key); err != nil {
		return err
	}

	err := s.root.Remove(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return biblioteca.ErrNotFound
		}
		return fmt.Errorf("could not delete blob: %w", err)
	}
	return nil
}

// Keys lists the storage keys of all blobs in the namespace. Temp files
// from in-flight writes are skipped. Intended for orphan sweeps.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirEntries, err := fs.ReadDir(s.root.FS(), ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}

	keys := make([]string, 0, len(dirEntries))
	for _, entry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if entry.IsDir() || isTmpFileName(entry.Name()) {
			continue
		}

		keys = append(keys, entry.Name())
	}

	return keys, nil
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}

func isTmpFileName(name string) bool {
	return len(name) > 2 && name[0] == '.' && name[1] == 't'
}
