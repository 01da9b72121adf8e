package credentials

// Config holds configuration for loading admin credentials.
type Config struct {
	Inline []Pair `mapstructure:"inline"` // Inline credential pairs from config
	File   string `mapstructure:"file"`   // Path to JSON file containing credential pairs
}

// NewStore creates a Store from the given configuration.
// It loads credentials from both inline config and file (if specified),
// merging them into a single store. File credentials take precedence over
// inline credentials if there are duplicates.
func NewStore(cfg Config) (Store, error) {
	creds := make(map[string]string)

	// Load inline credentials
	for _, p := range cfg.Inline {
		if p.Username != "" && p.Password != "" {
			creds[p.Username] = p.Password
		}
	}

	// Load credentials from file if specified
	if cfg.File != "" {
		fileCreds, err := LoadFromFile(cfg.File)
		if err != nil {
			return nil, err
		}
		for k, v := range fileCreds {
			creds[k] = v
		}
	}

	return NewMapStore(creds), nil
}
