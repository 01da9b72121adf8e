// Package credentials provides Store implementations for admin credential
// lookup and verification.
package credentials

import (
	"crypto/subtle"
	"fmt"

	biblioteca "github.com/K3v1nD14s/Biblioteca"
)

// Store looks up the password configured for a username.
type Store interface {
	// Lookup retrieves the password for the given username.
	// Returns an error wrapping biblioteca.ErrUnauthorized when the
	// username is not known.
	Lookup(username string) (string, error)
}

// MapStore retrieves credentials from an in-memory map.
// Suitable for configuration file-based credential storage.
type MapStore struct {
	creds map[string]string
}

// NewMapStore creates a new map-based store with the given username to password mapping.
func NewMapStore(creds map[string]string) *MapStore {
	return &MapStore{creds: creds}
}

// Lookup retrieves the password for the given username from the map.
func (s *MapStore) Lookup(username string) (string, error) {
	password, found := s.creds[username]
	if !found {
		return "", fmt.Errorf("username not found: %w", biblioteca.ErrUnauthorized)
	}
	return password, nil
}

// Verify checks a username/password pair against the store in constant
// time. Returns biblioteca.ErrUnauthorized on any mismatch so callers
// cannot distinguish an unknown user from a wrong password.
func Verify(store Store, username, password string) error {
	expected, err := store.Lookup(username)
	if err != nil {
		return biblioteca.ErrUnauthorized
	}

	if subtle.ConstantTimeCompare([]byte(password), []byte(expected)) != 1 {
		return biblioteca.ErrUnauthorized
	}

	return nil
}
