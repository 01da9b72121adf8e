package biblioteca

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"
)

// Book is one metadata record per uploaded item. The storage keys are
// backend-specific identifiers, opaque to callers and never user-supplied.
// JSON field names follow the public API contract.
type Book struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title,omitempty"`
	StorageKey       string    `json:"filename"`
	OriginalFilename string    `json:"originalFilename"`
	CoverStorageKey  string    `json:"coverFilename,omitempty"`
	UploadDate       time.Time `json:"uploadDate"`
}

// NewBook carries the fields of a book record about to be created.
// The ID and upload date are assigned by the metadata store.
type NewBook struct {
	Title            string
	StorageKey       string
	OriginalFilename string
	CoverStorageKey  string
}

// UploadRequest is the input of LibraryService.Upload. Cover and
// CoverFilename are optional; Title falls back to the book filename
// with the extension stripped.
type UploadRequest struct {
	BookFilename  string
	Book          io.Reader
	CoverFilename string
	Cover         io.Reader
	Title         string
}

// PutResult reports the outcome of a successful blob write.
type PutResult struct {
	BytesWritten int64
	Etag         string
}

// Reference is a retrieval reference for a stored blob. Proxied means the
// content must be streamed through the service; otherwise URL points at a
// backend-native location the client can fetch directly.
type Reference struct {
	URL     string
	Proxied bool
}

// Content is resolved book or cover content ready for delivery. Exactly one
// of RedirectURL and Body is set. Inline requests in-browser rendering via
// the Content-Disposition header.
type Content struct {
	RedirectURL string
	Body        io.ReadCloser
	ContentType string
	Filename    string
	Inline      bool
}

// BackendKind selects the blob storage backend at startup.
type BackendKind string

const (
	BackendLocal BackendKind = "local"
	BackendS3    BackendKind = "s3"
)

func (k BackendKind) IsValid() bool {
	switch k {
	case BackendLocal, BackendS3:
		return true
	default:
		return false
	}
}

func ParseBackendKind(s string) (BackendKind, error) {
	kind := BackendKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid storage backend: %s (valid backends: local, s3)", s)
	}
	return kind, nil
}

// Tables holds configurable table names for metadata storage.
// This allows multi-tenant deployments to use different table names.
type Tables struct {
	Books string `mapstructure:"books"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Books == "" {
		return errors.New("validate tables: books table name cannot be empty")
	}

	if !IsValidTableName(t.Books) {
		return fmt.Errorf("validate tables: invalid books table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Books)
	}

	return nil
}
