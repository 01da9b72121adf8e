package biblioteca

import "errors"

var (
	// ErrNotFound is returned when a book record or blob is not found
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedFormat is returned when a file extension is not on the allow-list
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrAccessDenied is returned when a storage key escapes its namespace
	ErrAccessDenied = errors.New("access denied")
	// ErrStorageWrite is returned when writing a blob to the backend fails
	ErrStorageWrite = errors.New("storage write failed")
	// ErrStorageRead is returned when reading a blob from the backend fails
	ErrStorageRead = errors.New("storage read failed")
	// ErrPersistence is returned when a metadata transaction fails
	ErrPersistence = errors.New("persistence failed")
	// ErrUnauthorized is returned when authentication fails
	ErrUnauthorized = errors.New("unauthorized")
)
