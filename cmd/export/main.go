package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/devapeu/aomstats-crawler/internal/config"
	"github.com/devapeu/aomstats-crawler/internal/scheduler"
	"github.com/devapeu/aomstats-crawler/internal/store"
)

// Writes a one-off CSV snapshot of the match log, same format as the weekly
// scheduled export.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx := context.Background()

	db, err := store.New(ctx, cfg.PostgresURL, cfg.EloDefault, logger)
	if err != nil {
		sugar.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	exporter := scheduler.NewExporter(db, cfg.ExportDir, logger)
	path, err := exporter.ExportOnce(ctx)
	if err != nil {
		sugar.Fatalw("Export failed", "error", err)
	}
	sugar.Infow("Export written", "path", path)
}
