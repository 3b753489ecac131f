// Command clear-uploads is an administrative override that empties the
// content root and the metadata table together, keeping the two stores
// consistent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/screenbin/screenbin/internal/config"
	"github.com/screenbin/screenbin/internal/database"
	"github.com/screenbin/screenbin/internal/ingest"
	"github.com/screenbin/screenbin/internal/logger"
	"github.com/screenbin/screenbin/internal/store"
)

func main() {
	_ = godotenv.Load()

	if err := config.Load(os.Getenv("SCREENBIN_CONFIG")); err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}
	cfg := config.Get()

	fmt.Println("Clearing all uploads...")

	db, err := database.Initialize(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	defer database.Close(db)

	records := store.NewRecordingStore(db)
	blobs := ingest.NewBlobStore(cfg.Storage.UploadsDir)

	filesDeleted, err := blobs.RemoveAll()
	if err != nil {
		logger.Error("Failed to clear uploads directory: %v", err)
	}
	fmt.Printf("Files deleted: %d\n", filesDeleted)

	recordsDeleted, err := records.DeleteAll()
	if err != nil {
		logger.Fatal("Failed to clear recording records: %v", err)
	}
	fmt.Printf("Records deleted: %d\n", recordsDeleted)

	fmt.Println("Cleanup complete!")
}
