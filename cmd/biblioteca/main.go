package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/K3v1nD14s/Biblioteca/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "biblioteca",
	Short:   "Personal digital library server",
	Long: `Biblioteca is a personal digital library server. It stores book
files and cover images in a local directory or a remote object store,
keeps their metadata in a relational database, and serves them over a
session-authenticated REST API.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg)

		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (env: BIBLIOTECA_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (env: BIBLIOTECA_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("backend", "", "storage backend: local, s3 (env: BIBLIOTECA_STORAGE_BACKEND)")
	rootCmd.PersistentFlags().String("books-path", "", "local book storage directory (env: BIBLIOTECA_STORAGE_BOOKS_PATH)")
	rootCmd.PersistentFlags().String("covers-path", "", "local cover storage directory (env: BIBLIOTECA_STORAGE_COVERS_PATH)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
