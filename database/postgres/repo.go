// Package postgres implements the book repo interface using PostgreSQL
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	biblioteca "github.com/K3v1nD14s/Biblioteca"
)

// Tables is an alias for biblioteca.Tables for package compatibility.
type Tables = biblioteca.Tables

type Repo struct {
	pool      *pgxpool.Pool
	tableName string
}

func NewRepo(pool *pgxpool.Pool, tables Tables) (*Repo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &Repo{pool: pool, tableName: tables.Books}, nil
}

// Ping verifies database connectivity
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) Create(ctx context.Context, b biblioteca.NewBook) (biblioteca.Book, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (title, storage_key, original_filename, cover_storage_key)
		VALUES (NULLIF($1, ''), $2, $3, NULLIF($4, ''))
		RETURNING id, upload_date
	`, r.tableName)

	book := biblioteca.Book{
		Title:            b.Title,
		StorageKey:       b.StorageKey,
		OriginalFilename: b.OriginalFilename,
		CoverStorageKey:  b.CoverStorageKey,
	}

	err := r.pool.QueryRow(ctx, query,
		b.Title, b.StorageKey, b.OriginalFilename, b.CoverStorageKey,
	).Scan(&book.ID, &book.UploadDate)
	if err != nil {
		return biblioteca.Book{}, fmt.Errorf("create: %w", err)
	}

	return book, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (biblioteca.Book, error) {
	query := fmt.Sprintf(`
		SELECT id, COALESCE(title, ''), storage_key, original_filename,
			COALESCE(cover_storage_key, ''), upload_date
		FROM %s
		WHERE id = $1
	`, r.tableName)

	var b biblioteca.Book
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.Title, &b.StorageKey, &b.OriginalFilename, &b.CoverStorageKey, &b.UploadDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return biblioteca.Book{}, biblioteca.ErrNotFound
		}
		return biblioteca.Book{}, fmt.Errorf("get: %w", err)
	}

	return b, nil
}

func (r *Repo) List(ctx context.Context) ([]biblioteca.Book, error) {
	query := fmt.Sprintf(`
		SELECT id, COALESCE(title, ''), storage_key, original_filename,
			COALESCE(cover_storage_key, ''), upload_date
		FROM %s
		ORDER BY upload_date DESC, id DESC
	`, r.tableName)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	books := []biblioteca.Book{}
	for rows.Next() {
		var b biblioteca.Book
		if scanErr := rows.Scan(&b.ID, &b.Title, &b.StorageKey, &b.OriginalFilename, &b.CoverStorageKey, &b.UploadDate); scanErr != nil {
			return nil, fmt.Errorf("list: scan: %w", scanErr)
		}
		books = append(books, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: rows error: %w", err)
	}

	return books, nil
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tableName)

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete: %w", biblioteca.ErrNotFound)
	}

	return nil
}

func (r *Repo) Keys(ctx context.Context) (map[string]bool, error) {
	query := fmt.Sprintf(`
		SELECT storage_key, COALESCE(cover_storage_key, '') FROM %s
	`, r.tableName)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var storageKey, coverKey string
		if scanErr := rows.Scan(&storageKey, &coverKey); scanErr != nil {
			return nil, fmt.Errorf("keys: scan: %w", scanErr)
		}

		keys[storageKey] = true
		if coverKey != "" {
			keys[coverKey] = true
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("keys: rows error: %w", err)
	}

	return keys, nil
}
