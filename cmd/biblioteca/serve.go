package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/K3v1nD14s/Biblioteca"
	"github.com/K3v1nD14s/Biblioteca/config"
	"github.com/K3v1nD14s/Biblioteca/credentials"
	"github.com/K3v1nD14s/Biblioteca/database"
	bibhttp "github.com/K3v1nD14s/Biblioteca/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the Biblioteca HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5173, "HTTP server port")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	if cfg.Auth.SessionSecret == "" {
		return errors.New("auth.session_secret is not set (run 'biblioteca configure' or set BIBLIOTECA_AUTH_SESSION_SECRET)")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	repo, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()

	slog.Info("connected to database", "type", cfg.Database.Type)

	books, covers, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	slog.Info("storage ready", "backend", cfg.Storage.Backend)

	serviceCfg := biblioteca.ServiceConfig{
		CleanupTimeout: time.Duration(cfg.Service.CleanupTimeout) * time.Second,
	}
	service := biblioteca.NewLibraryService(repo, books, covers, serviceCfg)

	creds, err := credentials.NewStore(cfg.Auth.Admin)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	sessions := bibhttp.NewSessionManager(
		[]byte(cfg.Auth.SessionSecret),
		time.Duration(cfg.Auth.SessionTTL)*time.Hour,
	)

	handlerConfig := bibhttp.HandlerConfig{
		Sessions:      sessions,
		Credentials:   creds,
		CORS:          cfg.CORS,
		MaxUploadSize: cfg.Server.MaxUploadSize,
	}

	handler := bibhttp.NewHandler(&handlerConfig, service)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
