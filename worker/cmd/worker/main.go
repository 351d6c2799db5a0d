package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"imageForge/worker/cache"
	"imageForge/worker/config"
	"imageForge/worker/kafka"
	"imageForge/worker/pool"
	"imageForge/worker/provider"
	"imageForge/worker/references"
	"imageForge/worker/repository"
	"imageForge/worker/service"
	"imageForge/worker/storage"
)

func main() {
	godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	brokers := strings.Split(cfg.KafkaBrokers, ",")

	logger.Info("Worker Service starting",
		zap.String("topic", cfg.DispatchTopic),
		zap.String("group", cfg.KafkaGroupID),
		zap.Int("workers", cfg.WorkerCount),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.Fatal("Failed to create kafka producer", zap.Error(err))
	}
	defer producer.Close()

	imageProvider, err := provider.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if err != nil {
		logger.Fatal("Failed to create generation provider", zap.Error(err))
	}

	artifactStore, err := storage.NewGCSStore(ctx, cfg.ArtifactBucket, cfg.GCPProjectID)
	if err != nil {
		logger.Fatal("Failed to create artifact store", zap.Error(err))
	}
	defer artifactStore.Close()

	repo := repository.NewPostgresRepo(db)
	statusCache := cache.NewStatusCache(redisClient)
	fetcher := references.NewFetcher(logger)
	scheduler := service.NewScheduler(repo, producer, cfg.DispatchTopic, logger)
	executor := service.NewExecutor(repo, statusCache, imageProvider, artifactStore, fetcher, scheduler, logger)

	consumer, err := kafka.NewConsumer(brokers, cfg.KafkaGroupID)
	if err != nil {
		logger.Fatal("Failed to create kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	workers := pool.NewWorkerPool(cfg.WorkerCount)

	handler := func(ctx context.Context, msg *kafka.DispatchMessage) error {
		workers.Submit(ctx, msg, func(ctx context.Context, msg *kafka.DispatchMessage) error {
			executor.Execute(ctx, msg)
			return nil
		})
		return nil
	}

	for ctx.Err() == nil {
		if err := consumer.Consume(ctx, cfg.DispatchTopic, handler); err != nil {
			logger.Error("Consumer error", zap.Error(err))
			time.Sleep(time.Second)
		}
	}

	logger.Info("Shutting down, waiting for in-flight tasks")
	workers.Wait()
}
