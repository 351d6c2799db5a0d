package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"imageForge/api/cache"
	"imageForge/api/config"
	"imageForge/api/database"
	"imageForge/api/handlers"
	"imageForge/api/kafka"
	"imageForge/api/middleware"
	"imageForge/api/repository"
	"imageForge/api/service"
)

func main() {
	godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()

	logger.Info("API Service starting",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	db, err := database.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	cacheConn, err := database.ConnectCache(cfg.RedisAddr)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer cacheConn.Close()

	producer, err := kafka.NewProducer(strings.Split(cfg.KafkaBrokers, ","))
	if err != nil {
		logger.Fatal("Failed to create kafka producer", zap.Error(err))
	}
	defer producer.Close()

	repo := repository.NewPostgresRepo(db)
	statusCache := cache.NewStatusCache(cacheConn)

	batchService := service.NewBatchService(repo, statusCache, producer, cfg.DispatchTopic)
	watchdog := service.NewWatchdog(repo, statusCache, producer, cfg.DispatchTopic, logger)

	batchHandler := handlers.NewBatchHandler(batchService, cfg.MaxBatchSize, logger)
	watchdogHandler := handlers.NewWatchdogHandler(watchdog, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("/batches", requireMethod(http.MethodPost, batchHandler.Create))
	mux.HandleFunc("/batches/", requireMethod(http.MethodGet, batchHandler.BatchStatus))
	mux.HandleFunc("/tasks/", requireMethod(http.MethodGet, batchHandler.TaskStatus))
	mux.HandleFunc("/watchdog/scan", requireMethod(http.MethodPost, watchdogHandler.Scan))

	handler := middleware.TraceID(
		middleware.Logging(logger)(
			middleware.Recovery(logger)(mux),
		),
	)

	logger.Info("Server started", zap.String("address", ":"+cfg.Port))
	log.Fatal(http.ListenAndServe(":"+cfg.Port, handler))
}

func requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}
