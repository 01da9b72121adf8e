package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/K3v1nD14s/Biblioteca/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := config.Load([]string{path}, nil)
	assert.NoError(t, err)

	assert.Equal(t, 5173, cfg.Server.Port)
	assert.Equal(t, int64(50*1024*1024), cfg.Server.MaxUploadSize)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "library.db", cfg.Database.DSN)
	assert.Equal(t, "biblioteca_books", cfg.Database.Tables.Books)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "./uploads", cfg.Storage.BooksPath)
	assert.Equal(t, "./covers", cfg.Storage.CoversPath)
	assert.Equal(t, 24, cfg.Auth.SessionTTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
database:
  type: postgres
  dsn: postgres://localhost/library
storage:
  backend: s3
  s3:
    endpoint: http://localhost:9000
    bucket: library
    access_key: minio
    secret_key: minio123
auth:
  session_secret: 0123456789abcdef0123456789abcdef
  admin:
    inline:
      - username: admin
        password: s3cret
`)

	cfg, err := config.Load([]string{path}, nil)
	assert.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "library", cfg.Storage.S3.Bucket)
	assert.Equal(t, "us-east-1", cfg.Storage.S3.Region)
	assert.Len(t, cfg.Auth.Admin.Inline, 1)
	assert.Equal(t, "admin", cfg.Auth.Admin.Inline[0].Username)
}

func TestLoad_LaterFileWins(t *testing.T) {
	base := writeConfig(t, "server:\n  port: 8080\n")
	override := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := config.Load([]string{base, override}, nil)
	assert.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")

	t.Setenv("BIBLIOTECA_SERVER_PORT", "9999")
	t.Setenv("BIBLIOTECA_STORAGE_BACKEND", "s3")

	cfg, err := config.Load([]string{path}, nil)
	assert.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "s3", cfg.Storage.Backend)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("invalid backend", func(t *testing.T) {
		path := writeConfig(t, "storage:\n  backend: ftp\n")

		_, err := config.Load([]string{path}, nil)
		assert.Error(t, err)
	})

	t.Run("port out of range", func(t *testing.T) {
		path := writeConfig(t, "server:\n  port: 99999\n")

		_, err := config.Load([]string{path}, nil)
		assert.Error(t, err)
	})

	t.Run("short session secret", func(t *testing.T) {
		path := writeConfig(t, "auth:\n  session_secret: short\n")

		_, err := config.Load([]string{path}, nil)
		assert.Error(t, err)
	})

	t.Run("invalid log level", func(t *testing.T) {
		path := writeConfig(t, "log:\n  level: loud\n")

		_, err := config.Load([]string{path}, nil)
		assert.Error(t, err)
	})
}

func TestS3ConfigStoreConfig(t *testing.T) {
	s3 := config.S3Config{
		Endpoint:  "http://localhost:9000",
		Region:    "us-east-1",
		Bucket:    "library",
		AccessKey: "minio",
		SecretKey: "minio123",
		PublicURL: "https://cdn.example.com",
	}

	storeCfg := s3.StoreConfig()
	assert.Equal(t, "http://localhost:9000", storeCfg.Endpoint)
	assert.Equal(t, "library", storeCfg.Bucket)
	assert.Equal(t, "https://cdn.example.com", storeCfg.PublicURL)
}
