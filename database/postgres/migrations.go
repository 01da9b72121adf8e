package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	biblioteca "github.com/K3v1nD14s/Biblioteca"
)

func createBooksTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	indexUploadDate := pgx.Identifier{fmt.Sprintf("idx_%s_upload_date", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			title TEXT,
			storage_key TEXT NOT NULL UNIQUE,
			original_filename TEXT NOT NULL,
			cover_storage_key TEXT,
			upload_date TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (upload_date DESC);
	`,
		quotedTable,
		indexUploadDate, quotedTable,
	)

	_, err := pool.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("create books table: %w", err)
	}
	return nil
}

func dropTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	quotedTable := pgx.Identifier{tableName}.Sanitize()

	_, err := pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quotedTable))
	if err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	return nil
}

func Migrate(ctx context.Context, pool *pgxpool.Pool, tables biblioteca.Tables) error {
	if err := createBooksTable(ctx, pool, tables.Books); err != nil {
		return fmt.Errorf("migrate up %s: %w", tables.Books, err)
	}
	return nil
}

func DropTables(ctx context.Context, pool *pgxpool.Pool, tables biblioteca.Tables) error {
	if err := dropTable(ctx, pool, tables.Books); err != nil {
		return fmt.Errorf("migrate down %s: %w", tables.Books, err)
	}
	return nil
}
