package credentials

import (
	"encoding/json"
	"fmt"
	"os"
)

// Pair represents a username and password pair.
type Pair struct {
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
}

// LoadFromFile loads credential pairs from a JSON file.
// The file should contain an array of pairs:
//
//	[
//	  {"username": "admin", "password": "s3cret"},
//	  {"username": "backup-admin", "password": "other_secret"}
//	]
//
// Returns a map of username to password.
func LoadFromFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config file
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var pairs []Pair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}

	creds := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if p.Username != "" && p.Password != "" {
			creds[p.Username] = p.Password
		}
	}

	return creds, nil
}
