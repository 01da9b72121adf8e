package main

import (
	"context"
	"fmt"

	"github.com/K3v1nD14s/Biblioteca"
	"github.com/K3v1nD14s/Biblioteca/config"
	"github.com/K3v1nD14s/Biblioteca/filesystem"
	"github.com/K3v1nD14s/Biblioteca/s3store"
)

// openStores builds the book and cover blob stores for the configured
// backend. The returned closer releases any held resources and must be
// called once both stores are no longer needed.
func openStores(ctx context.Context, cfg *config.Config) (books, covers biblioteca.BlobStore, closer func(), err error) {
	backend, err := biblioteca.ParseBackendKind(cfg.Storage.Backend)
	if err != nil {
		return nil, nil, nil, err
	}

	switch backend {
	case biblioteca.BackendLocal:
		booksRoot, err := filesystem.Open(cfg.Storage.BooksPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open book storage: %w", err)
		}

		coversRoot, err := filesystem.Open(cfg.Storage.CoversPath)
		if err != nil {
			_ = booksRoot.Close()
			return nil, nil, nil, fmt.Errorf("open cover storage: %w", err)
		}

		closer = func() {
			_ = booksRoot.Close()
			_ = coversRoot.Close()
		}
		return filesystem.NewBlobStore(booksRoot), filesystem.NewBlobStore(coversRoot), closer, nil

	case biblioteca.BackendS3:
		storeCfg := cfg.Storage.S3.StoreConfig()

		books, err := s3store.New(ctx, storeCfg, cfg.Storage.S3.BooksPrefix)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect book store: %w", err)
		}

		covers, err := s3store.New(ctx, storeCfg, cfg.Storage.S3.CoversPrefix)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect cover store: %w", err)
		}

		return books, covers, func() {}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported storage backend: %s", backend)
	}
}
