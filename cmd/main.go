/*
Package main is the entry point for the famhub device agent.

It loads configuration, initializes the global logging system, opens the
local credential store and the shared remote room store, assembles the
session and its controller, sets up the HTTP server, and handles operating
system interrupt signals (SIGINT, SIGTERM) for a graceful shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"famhub/internal/app/backup"
	"famhub/internal/app/creds"
	"famhub/internal/app/session"
	"famhub/internal/app/store"
	"famhub/internal/configs"
	"famhub/internal/handler"
	"famhub/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("remote_store", cfg.RemoteStore).
		Bool("backup_enabled", cfg.BackupEnabled()).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the device-local credential store
	credStore, err := creds.Open(cfg.CredentialsPath)
	if err != nil {
		logx.Fatal(err, "Failed to open credential store")
	}
	defer credStore.Close()

	// Connect the shared remote room store
	var roomStore store.RoomStore
	switch cfg.RemoteStore {
	case configs.RemoteStorePostgres:
		roomStore, err = store.NewPostgresStore(ctx, cfg.DatabaseDSN)
	default:
		roomStore, err = store.NewRedisStore(ctx, cfg.RedisAddr)
	}
	if err != nil {
		logx.Fatal(err, "Failed to connect remote room store")
	}
	defer roomStore.Close()

	// Assemble the session, its page-load controller, and optional backups
	sess := session.NewSession(roomStore, credStore)
	controller := session.NewController(sess, credStore, handler.LoginPath)

	var backupService backup.Service
	if cfg.BackupEnabled() {
		backupService, err = backup.NewService(backup.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize backup storage")
		}
	}

	deps := &handler.AppDeps{
		Session:    sess,
		Controller: controller,
		Store:      roomStore,
		Config:     cfg,
		Backup:     backupService,
	}

	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("famhub agent starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	// Detach the remote subscription before the store closes.
	sess.Release()

	logx.Info("Server gracefully stopped.")
}
