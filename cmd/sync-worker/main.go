package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"classroom-photo-sync/internal/config"
	"classroom-photo-sync/internal/db"
	"classroom-photo-sync/internal/logger"
	"classroom-photo-sync/internal/queue"
	"classroom-photo-sync/internal/storage"
	"classroom-photo-sync/internal/sync"
	"classroom-photo-sync/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting sync worker")

	for _, problem := range cfg.ValidateS3() {
		log.Warn().Str("problem", problem).Msg("S3 configuration incomplete, uploads will fail")
	}

	repo := db.NewRepository(cfg.Database.Path)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("Failed to prepare photo database")
	}

	s3Storage, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create S3 client")
	}

	redisClient, err := queue.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	syncWorker := worker.NewSyncWorker(
		sync.NewService(repo, s3Storage),
		queue.NewResultStore(redisClient, cfg),
		queue.NewConsumer(redisClient, cfg),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := syncWorker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Sync worker failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-done:
	}

	log.Info().Msg("Shutting down sync worker...")

	// A job already taken off the queue still runs to completion.
	cancel()
	<-done

	log.Info().Msg("Sync worker exited")
}
