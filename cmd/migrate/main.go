package main

import (
	"context"
	"log"

	"fusionguard/config"
	"fusionguard/core/appbootstrap"
	"fusionguard/core/store"
	"fusionguard/core/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	logger := utils.NewLogger()
	defer logger.Sync()
	if cfg.Storage.Backend != "sql" {
		logger.Printf("storage backend %s has no migrations", cfg.Storage.Backend)
		return
	}
	if err := appbootstrap.EnsureStorageDirs(cfg, logger); err != nil {
		logger.Fatalf("storage dirs: %v", err)
	}
	db, err := store.NewDB(cfg.Storage, logger)
	if err != nil {
		logger.Fatalf("db: %v", err)
	}
	defer db.Close()

	status, err := store.GetMigrationStatus(context.Background(), db)
	if err == nil && !status.HasPending {
		logger.Printf("schema up to date version=%d", status.CurrentVersion)
		return
	}
	if err := store.ApplyMigrations(context.Background(), db, logger); err != nil {
		logger.Fatalf("migrations: %v", err)
	}
	logger.Printf("migrations applied")
}
