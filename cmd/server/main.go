package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cardsystem/internal/config"
	"cardsystem/internal/handler"
	"cardsystem/internal/infrastructure/cache"
	"cardsystem/internal/infrastructure/database"
	"cardsystem/internal/infrastructure/lock"
	"cardsystem/internal/infrastructure/mq"
	"cardsystem/internal/job"
	"cardsystem/internal/logger"
	"cardsystem/internal/service"
	"cardsystem/pkg/cardutil"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Open(&cfg.Database, log)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	var cardCache service.CardCache = service.NoopCardCache{}
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		cardCache = cache.NewCardCache(redisClient, cfg.Redis.CardCacheTTL)
		log.Info().Msg("redis card cache enabled")
	}

	generator := cardutil.NewGenerator(cfg.Business.ValidationCodeLength)
	cardService := service.NewCardService(db, cardCache, generator, cfg)
	transactionService := service.NewTransactionService(db, cardService, generator, cfg)

	if cfg.Kafka.Enabled {
		producer, err := mq.NewProducer(&cfg.Kafka)
		if err != nil {
			return err
		}
		defer producer.Close()

		var locker job.Locker
		if redisClient != nil {
			owner := fmt.Sprintf("%s-%s", hostname(), uuid.NewString())
			locker = lock.NewOutboxRelayLock(redisClient, owner, cfg.Outbox.LockTTL)
		}

		sender := job.NewOutboxSender(db, producer, locker, &cfg.Outbox, log)
		go sender.Start(ctx)
		defer sender.Stop()
	} else {
		log.Warn().Msg("kafka disabled, lifecycle events stay in the outbox")
	}

	router := handler.SetupRouter(handler.NewHandler(cardService, transactionService), log)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		return fmt.Errorf("http server failed: %w", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
