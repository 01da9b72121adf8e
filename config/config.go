package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/K3v1nD14s/Biblioteca/credentials"
	"github.com/K3v1nD14s/Biblioteca/database"
	bibhttp "github.com/K3v1nD14s/Biblioteca/http"
	"github.com/K3v1nD14s/Biblioteca/s3store"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for biblioteca.
type Config struct {
	Server   ServerConfig       `mapstructure:"server"`
	Service  ServiceConfig      `mapstructure:"service"`
	Database database.Config    `mapstructure:"database"`
	Storage  StorageConfig      `mapstructure:"storage"`
	Auth     AuthConfig         `mapstructure:"auth"`
	CORS     bibhttp.CORSConfig `mapstructure:"cors"`
	Log      LogConfig          `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          int   `mapstructure:"port" validate:"required,min=1,max=65535"`
	MaxUploadSize int64 `mapstructure:"max_upload_size" validate:"min=0"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	CleanupTimeout int `mapstructure:"cleanup_timeout" validate:"min=1"`
}

// StorageConfig holds blob storage configuration.
type StorageConfig struct {
	Backend    string   `mapstructure:"backend" validate:"required,oneof=local s3"`
	BooksPath  string   `mapstructure:"books_path"`
	CoversPath string   `mapstructure:"covers_path"`
	S3         S3Config `mapstructure:"s3"`
}

// S3Config holds remote object store configuration.
type S3Config struct {
	Endpoint     string `mapstructure:"endpoint"`
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	PublicURL    string `mapstructure:"public_url"`
	BooksPrefix  string `mapstructure:"books_prefix"`
	CoversPrefix string `mapstructure:"covers_prefix"`
}

// StoreConfig converts the viper shape to the s3store connection config.
func (c S3Config) StoreConfig() s3store.Config {
	return s3store.Config{
		Endpoint:  c.Endpoint,
		Region:    c.Region,
		Bucket:    c.Bucket,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		PublicURL: c.PublicURL,
	}
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	SessionSecret string             `mapstructure:"session_secret" validate:"omitempty,min=16"`
	SessionTTL    int                `mapstructure:"session_ttl" validate:"min=1"` // hours
	Admin         credentials.Config `mapstructure:"admin"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":     "database.type",
	"db-dsn":      "database.dsn",
	"backend":     "storage.backend",
	"books-path":  "storage.books_path",
	"covers-path": "storage.covers_path",
	"port":        "server.port",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5173)
	v.SetDefault("server.max_upload_size", 50*1024*1024)

	v.SetDefault("service.cleanup_timeout", 30) // seconds

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "library.db")
	v.SetDefault("database.tables.books", "biblioteca_books")

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.books_path", "./uploads")
	v.SetDefault("storage.covers_path", "./covers")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.books_prefix", "books/")
	v.SetDefault("storage.s3.covers_prefix", "covers/")

	v.SetDefault("auth.session_ttl", 24) // hours

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("BIBLIOTECA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
