package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"humanityclub/site/internal/cache"
	"humanityclub/site/internal/config"
	"humanityclub/site/internal/database"
	"humanityclub/site/internal/log"
	"humanityclub/site/internal/mail"
	"humanityclub/site/internal/queue"
	"humanityclub/site/internal/repository"
	"humanityclub/site/internal/storage"
	"humanityclub/site/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.Open(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}

	sender := mail.NewSender(cfg.Mail)
	if !sender.Configured() {
		logger.Warn().Msg("mail relay not configured, contact messages will be dropped")
	}

	processor := tasks.NewProcessor(
		logger,
		sender,
		objectStore,
		repository.NewProjectRepository(dbPool),
		repository.NewSettingsRepository(dbPool),
		cfg.Worker.SweepMinAge,
	)
	consumer := queue.NewConsumer(
		client,
		cfg.Redis.Stream,
		cfg.Redis.Group,
		cfg.Redis.Consumer,
		cfg.Worker.ClaimInterval,
		logger,
		processor,
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("consumer stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("consumer did not stop in time")
	}
}
