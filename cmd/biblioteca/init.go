package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/K3v1nD14s/Biblioteca/config"
	"github.com/K3v1nD14s/Biblioteca/database"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the database and storage",
	Long: `Create the metadata table and the storage locations so the
server can start with a clean state. Safe to run more than once:
existing tables and directories are left untouched.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	_, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	closeDB()

	slog.Info("database ready", "type", cfg.Database.Type, "table", cfg.Database.Tables.Books)

	_, _, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	closeStores()

	slog.Info("storage ready", "backend", cfg.Storage.Backend)
	slog.Info("initialization complete")
	return nil
}
