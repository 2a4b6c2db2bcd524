package main

import (
	"context"
	"flag"
	"log"

	"carrental-backend/internal/config"
	"carrental-backend/internal/db"
	"carrental-backend/internal/logger"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	to := flag.String("to", "latest", "Target migration version, or 'latest'")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	logger.Info("Applying migrations", "target", *to, "host", cfg.Database.Host, "database", cfg.Database.Database)
	if err := db.Migrate(context.Background(), cfg.GetDatabaseConnectionString(), *to); err != nil {
		logger.Error("Migration failed", "error", err)
		log.Fatalf("Migration failed: %v", err)
	}
	logger.Info("Migrations applied")
}
