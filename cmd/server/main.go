package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coldfire85/neurolog/internal/server/api"
	"github.com/coldfire85/neurolog/internal/server/config"
	"github.com/coldfire85/neurolog/internal/server/database"
	"github.com/coldfire85/neurolog/internal/server/service"
	"github.com/coldfire85/neurolog/internal/server/storage"
)

func main() {
	// Structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg := config.Load()
	slog.Info("configuration loaded",
		"port", cfg.Port,
		"media_root", cfg.MediaRoot,
		"max_batch_files", cfg.MaxBatchFiles,
		"token_expiry", cfg.TokenExpiry,
	)

	// Connect to database
	ctx := context.Background()
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations complete")

	// Initialize storage
	store := storage.NewFileSystemStore(cfg.MediaRoot)
	if err := store.EnsureDir(); err != nil {
		slog.Error("failed to initialize media storage", "error", err)
		os.Exit(1)
	}
	slog.Info("media storage initialized", "path", cfg.MediaRoot)

	// Initialize repository and services
	repo := database.NewRepository(db)
	accounts := service.NewAccountService(repo, cfg.JWTSecret, cfg.TokenExpiry)
	mediaSvc := service.NewMediaService(repo, store)
	procedures := service.NewProcedureService(repo)
	export := service.NewExportService(repo)

	// Start orphaned-media cleanup
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	cleanup := storage.NewCleanupService(repo, store, cfg.CleanupInterval, cfg.OrphanTTL)
	cleanup.Start(cleanupCtx)

	// Setup HTTP router; the upload endpoint is rate-limited
	handler := api.NewHandler(accounts, mediaSvc, procedures, export, db)
	uploadLimiter := api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	e := api.SetupRouter(handler, cfg, uploadLimiter)

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		slog.Info("starting server", "addr", addr, "base_url", cfg.BaseURL)
		if err := e.Start(addr); err != nil {
			slog.Info("server stopped", "reason", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down", "signal", sig)

	// Stop accepting new requests, finish in-flight with 30s timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Stop background workers
	uploadLimiter.Stop()
	cleanupCancel()
	cleanup.Wait()

	slog.Info("server exited cleanly")
}
