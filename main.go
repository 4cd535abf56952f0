package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"fairbet/config"
	"fairbet/db"
	"fairbet/engine"
	"fairbet/models"
	"fairbet/ws"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	if err := godotenv.Load(); err != nil {
		logger.Warn(".env file not found, using environment variables")
	}
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.NewPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("postgres", "err", err)
	}
	defer store.Close()

	// Redis is optional: without it the recent-bets feed and rate limiting
	// degrade to no-ops.
	redis, err := db.NewRedis(ctx, cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB, logger)
	if err != nil {
		logger.Warn("redis unavailable", "err", err)
		redis = nil
	}

	gameDefs, err := store.FetchAllGames(ctx)
	if err != nil {
		logger.Fatal("fetch games", "err", err)
	}
	logger.Info("loaded games", "count", len(gameDefs))

	manager := ws.NewManager(gameDefs, logger)
	betCh := make(chan models.EngineBet, 256)
	statefulCh := make(chan models.EngineBet, 256)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error { return manager.Run(ctx) })

	for i := 0; i < cfg.NumEngines; i++ {
		worker := engine.NewWorker(i, store, redis, gameDefs, betCh, statefulCh, manager.Tx(), logger)
		group.Go(func() error { return worker.Run(ctx) })
	}

	stateful := engine.NewStatefulWorker(store, redis, gameDefs, statefulCh, manager.Tx(), logger)
	group.Go(func() error { return stateful.Run(ctx) })

	server := ws.NewServer(cfg, store, redis, manager.Tx(), betCh, logger)
	group.Go(func() error { return server.Start(ctx) })

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("shutdown", "err", err)
	}
	logger.Info("shutdown complete")
}
