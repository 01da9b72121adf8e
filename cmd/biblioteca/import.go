package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/K3v1nD14s/Biblioteca"
	"github.com/K3v1nD14s/Biblioteca/config"
	"github.com/K3v1nD14s/Biblioteca/database"
)

var importCmd = &cobra.Command{
	Use:   "import [flags] <file1> [file2] ...",
	Short: "Import book files into the library",
	Long: `Import book files from external paths into the library.

This command copies files into storage and registers their metadata
in the database. Titles are derived from the original filenames.

Examples:
  # Import a single book
  biblioteca import /path/to/book.epub

  # Import a book together with its cover image
  biblioteca import --cover /path/to/cover.jpg /path/to/book.pdf

  # Import a directory of books recursively
  biblioteca import -r /path/to/library`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

var (
	importCover     string
	importRecursive bool
	importQuiet     bool
)

func init() {
	importCmd.Flags().StringVarP(&importCover, "cover", "c", "", "cover image to attach (single book only)")
	importCmd.Flags().BoolVarP(&importRecursive, "recursive", "r", false, "recursively import directories")
	importCmd.Flags().BoolVarP(&importQuiet, "quiet", "q", false, "suppress per-file output")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	repo, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()

	books, covers, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	service := biblioteca.NewLibraryService(repo, books, covers, biblioteca.ServiceConfig{})

	// Collect book files from all arguments
	var files []string
	for _, arg := range args {
		collected, collectErr := collectBookFiles(arg, importRecursive)
		if collectErr != nil {
			return fmt.Errorf("collect files from %s: %w", arg, collectErr)
		}
		files = append(files, collected...)
	}

	if len(files) == 0 {
		slog.Info("no book files to import")
		return nil
	}

	if importCover != "" && len(files) > 1 {
		return fmt.Errorf("--cover can only be used with a single book, got %d", len(files))
	}

	imported := 0

	for _, path := range files {
		f, openErr := os.Open(path)
		if openErr != nil {
			return fmt.Errorf("open %s: %w", path, openErr)
		}

		req := biblioteca.UploadRequest{
			BookFilename: filepath.Base(path),
			Book:         f,
		}

		var cover *os.File
		if importCover != "" {
			cover, openErr = os.Open(importCover)
			if openErr != nil {
				_ = f.Close()
				return fmt.Errorf("open cover %s: %w", importCover, openErr)
			}
			req.CoverFilename = filepath.Base(importCover)
			req.Cover = cover
		}

		book, uploadErr := service.Upload(ctx, req)
		_ = f.Close()
		if cover != nil {
			_ = cover.Close()
		}

		if uploadErr != nil {
			return fmt.Errorf("import %s: %w", path, uploadErr)
		}

		imported++
		if !importQuiet {
			slog.Info("imported", "title", book.Title, "id", book.ID)
		}
	}

	slog.Info("import complete", "imported", imported)
	return nil
}

// collectBookFiles gathers book files from a path, optionally recursively.
// Files with unsupported extensions are skipped when walking a directory
// but rejected when named directly.
func collectBookFiles(path string, recursive bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if !biblioteca.IsAllowedBookFormat(path) {
			return nil, fmt.Errorf("unsupported book format: %s", path)
		}
		return []string{path}, nil
	}

	if !recursive {
		return nil, fmt.Errorf("%s is a directory (use -r to import recursively)", path)
	}

	var files []string
	walkErr := filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if d.IsDir() {
			return nil
		}

		if biblioteca.IsAllowedBookFormat(walkPath) {
			files = append(files, walkPath)
		}
		return nil
	})

	if walkErr != nil {
		return nil, walkErr
	}

	return files, nil
}
