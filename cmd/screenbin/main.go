package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/screenbin/screenbin/internal/config"
	"github.com/screenbin/screenbin/internal/database"
	"github.com/screenbin/screenbin/internal/ingest"
	"github.com/screenbin/screenbin/internal/logger"
	"github.com/screenbin/screenbin/internal/metadata"
	"github.com/screenbin/screenbin/internal/server"
	"github.com/screenbin/screenbin/internal/store"
	"github.com/screenbin/screenbin/internal/sweeper"
	"github.com/screenbin/screenbin/internal/transcode"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	if err := config.Load(os.Getenv("SCREENBIN_CONFIG")); err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}
	cfg := config.Get()

	db, err := database.Initialize(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	records := store.NewRecordingStore(db)
	blobs := ingest.NewBlobStore(cfg.Storage.UploadsDir)
	if err := blobs.EnsureRoot(); err != nil {
		logger.Fatal("Failed to prepare uploads directory: %v", err)
	}

	prober := metadata.NewProber(cfg.Transcode.FFprobePath)
	ingestor := ingest.NewIngestor(records, blobs, prober, cfg.Retention.Window)

	transcoder := transcode.NewFFmpegTranscoder(cfg.Transcode.FFmpegPath)
	cache := transcode.NewCache(cfg.Storage.UploadsDir, transcoder, cfg.Transcode.ConvertTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sw := sweeper.NewSweeper(records, blobs, cfg.Retention)
	sw.Start(ctx)

	srv := server.New(cfg, ingestor, records, blobs, cache)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Server running on http://%s", addr)
		logger.Info("Uploads directory: %s", cfg.Storage.UploadsDir)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed: %v", err)
	}

	sw.Stop()

	if err := database.Close(db); err != nil {
		logger.Error("Database close failed: %v", err)
	}
}
