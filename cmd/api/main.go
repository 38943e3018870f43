package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"classroom-photo-sync/internal/api"
	"classroom-photo-sync/internal/auth"
	"classroom-photo-sync/internal/capture"
	"classroom-photo-sync/internal/config"
	"classroom-photo-sync/internal/db"
	"classroom-photo-sync/internal/logger"
	"classroom-photo-sync/internal/queue"
	"classroom-photo-sync/internal/roster"
	"classroom-photo-sync/internal/storage"
	"classroom-photo-sync/internal/sync"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting API server")

	for _, problem := range cfg.ValidateS3() {
		log.Warn().Str("problem", problem).Msg("S3 configuration incomplete, uploads will fail")
	}

	ctx := context.Background()

	teachers, err := roster.Load(ctx, cfg.Roster.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Roster.Path).Msg("Failed to load roster")
	}
	log.Info().Int("teachers", teachers.Len()).Msg("Roster loaded")

	// The record store opens the database per call; this only prepares the schema.
	repo := db.NewRepository(cfg.Database.Path)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("Failed to prepare photo database")
	}

	s3Storage, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create S3 client")
	}

	// Queued sync is optional; without Redis only the synchronous routes work.
	var (
		jobs    api.JobQueue
		results api.JobResults
	)
	redisClient, err := queue.NewRedisClient(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, queued sync disabled")
	} else {
		defer redisClient.Close()
		jobs = queue.NewProducer(redisClient, cfg)
		results = queue.NewResultStore(redisClient, cfg)
	}

	handler := api.NewHandler(
		cfg,
		auth.NewAuthenticator(teachers),
		repo,
		capture.NewService(repo, cfg.Photos.Dir),
		sync.NewService(repo, s3Storage),
		jobs,
		results,
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(api.CORSMiddleware())
	router.Use(api.LoggingMiddleware())
	router.Use(api.RecoveryMiddleware())

	api.SetupRoutes(router, handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
