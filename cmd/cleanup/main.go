// Command cleanup runs a single expiry sweep and exits. The exit status is
// non-zero if any deletion failed, so an invoking scheduler can alert on
// partial sweeps.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/screenbin/screenbin/internal/config"
	"github.com/screenbin/screenbin/internal/database"
	"github.com/screenbin/screenbin/internal/ingest"
	"github.com/screenbin/screenbin/internal/logger"
	"github.com/screenbin/screenbin/internal/store"
	"github.com/screenbin/screenbin/internal/sweeper"
)

func main() {
	_ = godotenv.Load()

	if err := config.Load(os.Getenv("SCREENBIN_CONFIG")); err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}
	cfg := config.Get()

	fmt.Println("Starting cleanup of expired recordings...")
	fmt.Printf("Uploads directory: %s\n", cfg.Storage.UploadsDir)

	db, err := database.Initialize(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	defer database.Close(db)

	records := store.NewRecordingStore(db)
	blobs := ingest.NewBlobStore(cfg.Storage.UploadsDir)

	result := sweeper.NewSweeper(records, blobs, cfg.Retention).RunOnce(context.Background())

	fmt.Println("\nCleanup summary:")
	fmt.Printf("  Files deleted: %d\n", result.FilesDeleted)
	fmt.Printf("  Records deleted: %d\n", result.RecordsDeleted)
	if result.HasErrors() {
		fmt.Printf("  Errors: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    %s\n", e)
		}
	}

	if count, err := records.Count(); err == nil {
		fmt.Printf("  Remaining recordings: %d\n", count)
	}

	if result.HasErrors() {
		os.Exit(1)
	}
}
