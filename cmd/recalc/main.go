package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/devapeu/aomstats-crawler/internal/config"
	"github.com/devapeu/aomstats-crawler/internal/logic"
	"github.com/devapeu/aomstats-crawler/internal/store"
)

// Rebuilds the rating ledger from scratch: regroups every stored match,
// resets all ratings to the default and replays the full match log.
//
// Ledger runs are serialized only within a single process. Stop the API
// server (or at least its sync jobs) before running this; a replay racing a
// live sync can double-apply or lose rating deltas.
func main() {
	skipRegroup := flag.Bool("skip-regroup", false, "skip recomputing team keys before the replay")
	flag.Parse()

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

	if !*skipRegroup {
		sugar.Info("Regrouping all matches")
		if err := db.RegroupAll(ctx); err != nil {
			sugar.Fatalw("Regroup failed", "error", err)
		}
	}

	elo := logic.NewEloService(db, db, cfg.Roster, cfg.EloParams(), logger)

	sugar.Info("Resetting rating ledger")
	if err := elo.Reset(ctx); err != nil {
		sugar.Fatalw("Reset failed", "error", err)
	}

	sugar.Info("Replaying full match log")
	if err := elo.Advance(ctx, true); err != nil {
		sugar.Fatalw("Replay failed", "error", err)
	}

	sugar.Info("Recalculation complete")
}
