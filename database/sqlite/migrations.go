package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	biblioteca "github.com/K3v1nD14s/Biblioteca"
)

// quoteIdentifier safely quotes a SQLite identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, db *sql.DB) error
	Down      func(ctx context.Context, db *sql.DB) error
}

// getTableMigrations returns all table migrations for the app
func getTableMigrations(tables biblioteca.Tables) []TableMigration {
	migrations := []TableMigration{}

	migrations = append(migrations, TableMigration{
		TableName: tables.Books,
		Up:        createBooksTable(tables.Books),
		Down:      dropTable(tables.Books),
	})

	return migrations
}

func Migrate(ctx context.Context, db *sql.DB, tables biblioteca.Tables) error {
	migrations := getTableMigrations(tables)

	for _, migration := range migrations {
		if err := migration.Up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}

	return nil
}

func DropTables(ctx context.Context, db *sql.DB, tables biblioteca.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if err := migration.Down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migration.TableName, err)
		}
	}

	return nil
}

func createBooksTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		indexUploadDate := quoteIdentifier(fmt.Sprintf("idx_%s_upload_date", tableName))

		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title TEXT,
				storage_key TEXT NOT NULL UNIQUE,
				original_filename TEXT NOT NULL,
				cover_storage_key TEXT,
				upload_date TEXT NOT NULL
			)
		`, quotedTable)

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create books table: %w", err)
		}

		createIndexSQL := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (upload_date DESC)
		`, indexUploadDate, quotedTable)

		if _, err := db.ExecContext(ctx, createIndexSQL); err != nil {
			return fmt.Errorf("create upload_date index: %w", err)
		}

		return nil
	}
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		dropSQL := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdentifier(tableName))
		if _, err := db.ExecContext(ctx, dropSQL); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
		return nil
	}
}
