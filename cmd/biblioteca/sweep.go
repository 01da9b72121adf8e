package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/K3v1nD14s/Biblioteca"
	"github.com/K3v1nD14s/Biblioteca/config"
	"github.com/K3v1nD14s/Biblioteca/database"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove orphaned blobs from storage",
	Long: `Remove stored files that no database record references.

Orphans can appear when a delete removes the metadata record but the
blob removal fails, or when an upload is rolled back partway through.
Run this periodically to reclaim storage space.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
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

	slog.Info("starting sweep", "backend", cfg.Storage.Backend)

	removed, err := service.SweepOrphans(ctx)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	slog.Info("sweep complete", "blobs_removed", removed)
	return nil
}
