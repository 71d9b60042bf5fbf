package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"humanityclub/site/internal/cache"
	"humanityclub/site/internal/config"
	"humanityclub/site/internal/database"
	"humanityclub/site/internal/handlers"
	"humanityclub/site/internal/jobs"
	"humanityclub/site/internal/log"
	"humanityclub/site/internal/queue"
	"humanityclub/site/internal/repository"
	"humanityclub/site/internal/security"
	"humanityclub/site/internal/server"
	"humanityclub/site/internal/service"
	"humanityclub/site/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "api")

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	tokens, err := security.NewTokenIssuer(cfg.Security)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init token issuer")
	}

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	if err := database.Migrate(ctx, dbPool, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Redis backs the cache, rate limits and task stream; the API keeps
	// serving without it.
	redisClient, err := cache.Open(ctx, cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, running without cache, rate limits or tasks")
		redisClient = nil
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}

	producer := queue.NewProducer(redisClient, cfg.Redis.Stream)
	contentCache := cache.NewContentCache(redisClient, cfg.Cache.TTL, logger)

	users := repository.NewUserRepository(dbPool)
	assets := service.NewAssetService(objectStore, producer, logger)

	deps := handlers.Deps{
		Auth:     service.NewAuthService(users, tokens, logger),
		Projects: service.NewProjectService(repository.NewProjectRepository(dbPool), assets, contentCache, cfg.Uploads.MaxProjectBytes, logger),
		Gallery:  service.NewGalleryService(repository.NewGalleryRepository(dbPool), assets, contentCache, cfg.Uploads.MaxGalleryBytes, logger),
		Settings: service.NewSettingsService(repository.NewSettingsRepository(dbPool), assets, contentCache,
			cfg.Uploads.MaxQRBytes, cfg.Uploads.MaxFounderBytes, logger),
		Contact: service.NewContactService(producer, logger),
		Tokens:  tokens,
		Users:   users,
		Checks: map[string]handlers.HealthCheck{
			"database": dbPool.Ping,
			"storage":  objectStore.Ping,
		},
	}
	if redisClient != nil {
		deps.Limiter = cache.NewLimiter(redisClient, "ratelimit")
		deps.Checks["cache"] = cache.Ping(redisClient)
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, deps)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	var scheduler *jobs.Scheduler
	if redisClient != nil {
		scheduler = jobs.NewScheduler(producer, cfg.Jobs, logger)
		if err := scheduler.Start(); err != nil {
			logger.Error().Err(err).Msg("scheduler start failed")
			scheduler = nil
		}
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if scheduler != nil {
		scheduler.Stop()
	}

	db.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
