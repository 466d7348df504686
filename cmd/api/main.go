package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/devapeu/aomstats-crawler/internal/config"
	"github.com/devapeu/aomstats-crawler/internal/crawler"
	"github.com/devapeu/aomstats-crawler/internal/handlers"
	"github.com/devapeu/aomstats-crawler/internal/logic"
	"github.com/devapeu/aomstats-crawler/internal/notify"
	"github.com/devapeu/aomstats-crawler/internal/scheduler"
	"github.com/devapeu/aomstats-crawler/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.New(ctx, cfg.PostgresURL, cfg.EloDefault, logger)
	if err != nil {
		sugar.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var rdb *redis.Client
	var cache logic.RedisClient
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			sugar.Fatalw("Failed to parse redis url", "error", err)
		}
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			sugar.Warnw("Redis unreachable, caching disabled", "error", err)
			rdb = nil
		} else {
			cache = rdb
			defer rdb.Close()
		}
	}

	eloParams := cfg.EloParams()
	eloService := logic.NewEloService(db, db, cfg.Roster, eloParams, logger)
	statsService := logic.NewStatsService(db, cfg.Roster, logger)
	matchupService := logic.NewMatchupService(db, db, eloParams, logger)
	globalService := logic.NewGlobalService(db, db, cfg.Roster, cache, logger)

	fetcher := crawler.NewClient(cfg.AomstatsBaseURL, cfg.CrawlThrottle, logger)

	var notifier *notify.WebhookClient
	if cfg.DiscordWebhookURL != "" {
		notifier = notify.NewWebhookClient(cfg.DiscordWebhookURL, logger)
	}

	syncer := scheduler.NewSyncer(db, fetcher, eloService, syncNotifier(notifier), cfg.Roster, logger)
	exporter := scheduler.NewExporter(db, cfg.ExportDir, logger)
	sched := scheduler.NewScheduler(syncer, exporter, logger)
	if err := sched.Start(); err != nil {
		sugar.Fatalw("Failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	h := handlers.New(handlers.Config{
		DB:          db,
		Redis:       rdb,
		Logger:      logger,
		APIKey:      cfg.APIKey,
		Roster:      cfg.Roster,
		Elo:         eloService,
		Stats:       statsService,
		Matchup:     matchupService,
		Global:      globalService,
		Tournaments: db,
		Syncer:      syncer,
		Planner:     plannerSender(notifier),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h.Routes(cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("Starting server", "port", cfg.Port, "env", cfg.Env, "roster_size", len(cfg.Roster))
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		sugar.Infow("Shutting down", "signal", sig.String())
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			sugar.Errorw("Server error", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("Graceful shutdown failed", "error", err)
	}
}

func buildLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// syncNotifier keeps the nil check on the concrete type so a missing webhook
// yields a nil interface rather than a typed nil.
func syncNotifier(c *notify.WebhookClient) scheduler.Notifier {
	if c == nil {
		return nil
	}
	return c
}

func plannerSender(c *notify.WebhookClient) handlers.PlannerSender {
	if c == nil {
		return nil
	}
	return c
}
