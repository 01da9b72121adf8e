// Package sqlite implements the book repo interface using SQLite
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	biblioteca "github.com/K3v1nD14s/Biblioteca"
)

// timeLayout is fixed-width RFC 3339 with nanoseconds. upload_date is a
// TEXT column ordered lexicographically, so trailing fraction zeros must
// not be stripped or sub-second timestamps compare out of order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type repo struct {
	db        *sql.DB
	tableName string
}

// NewRepo returns a BookRepo backed by the given connection.
func NewRepo(db *sql.DB, tables biblioteca.Tables) (biblioteca.BookRepo, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}

	return &repo{db: db, tableName: tables.Books}, nil
}

func (r *repo) Create(ctx context.Context, b biblioteca.NewBook) (biblioteca.Book, error) {
	now := time.Now().UTC()

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (title, storage_key, original_filename, cover_storage_key, upload_date)
		VALUES (?, ?, ?, ?, ?)`, r.tableName)

	result, err := r.db.ExecContext(ctx, query,
		nullable(b.Title), b.StorageKey, b.OriginalFilename, nullable(b.CoverStorageKey),
		now.Format(timeLayout),
	)
	if err != nil {
		return biblioteca.Book{}, fmt.Errorf("create: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return biblioteca.Book{}, fmt.Errorf("create: last insert id: %w", err)
	}

	return biblioteca.Book{
		ID:               id,
		Title:            b.Title,
		StorageKey:       b.StorageKey,
		OriginalFilename: b.OriginalFilename,
		CoverStorageKey:  b.CoverStorageKey,
		UploadDate:       now,
	}, nil
}

func (r *repo) Get(ctx context.Context, id int64) (biblioteca.Book, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, title, storage_key, original_filename, cover_storage_key, upload_date
		FROM %s
		WHERE id = ?`, r.tableName)

	book, err := scanBook(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return biblioteca.Book{}, biblioteca.ErrNotFound
		}
		return biblioteca.Book{}, fmt.Errorf("get: %w", err)
	}

	return book, nil
}

func (r *repo) List(ctx context.Context) ([]biblioteca.Book, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, title, storage_key, original_filename, cover_storage_key, upload_date
		FROM %s
		ORDER BY upload_date DESC, id DESC`, r.tableName)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	books := []biblioteca.Book{}
	for rows.Next() {
		book, scanErr := scanBook(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("list: %w", scanErr)
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: rows error: %w", err)
	}

	return books, nil
}

func (r *repo) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, r.tableName) //nolint:gosec // table name is validated

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("delete: %w", biblioteca.ErrNotFound)
	}

	return nil
}

func (r *repo) Keys(ctx context.Context) (map[string]bool, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT storage_key, cover_storage_key FROM %s`, r.tableName)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	keys := make(map[string]bool)
	for rows.Next() {
		var storageKey string
		var coverKey sql.NullString

		if scanErr := rows.Scan(&storageKey, &coverKey); scanErr != nil {
			return nil, fmt.Errorf("keys: scan: %w", scanErr)
		}

		keys[storageKey] = true
		if coverKey.Valid && coverKey.String != "" {
			keys[coverKey.String] = true
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("keys: rows error: %w", err)
	}

	return keys, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (biblioteca.Book, error) {
	var b biblioteca.Book
	var title, coverKey sql.NullString
	var uploadDate string

	if err := row.Scan(&b.ID, &title, &b.StorageKey, &b.OriginalFilename, &coverKey, &uploadDate); err != nil {
		return biblioteca.Book{}, err
	}

	b.Title = title.String
	b.CoverStorageKey = coverKey.String

	parsed, err := time.Parse(time.RFC3339Nano, uploadDate)
	if err != nil {
		return biblioteca.Book{}, fmt.Errorf("parse upload_date: %w", err)
	}
	b.UploadDate = parsed

	return b, nil
}

// nullable maps "" to NULL so optional fields round-trip as absent.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
