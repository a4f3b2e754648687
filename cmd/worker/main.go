package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"github.com/socialchef/moodbite/internal/app"
	"github.com/socialchef/moodbite/internal/config"
	"github.com/socialchef/moodbite/internal/sentry"
	"github.com/socialchef/moodbite/internal/worker"
)

const defaultConcurrency = 10

func main() {
	defer sentry.Recover()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required to run the worker")
	}

	shutdownObservability := app.InitObservability(ctx, cfg, "-worker")
	defer shutdownObservability()

	rdb, err := app.NewRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	svc, err := app.NewRecommender(ctx, cfg, rdb)
	if err != nil {
		log.Fatalf("Failed to build recommender: %v", err)
	}

	workerMetrics, err := worker.NewWorkerMetrics()
	if err != nil {
		slog.Warn("Failed to init worker metrics", "error", err)
	}

	concurrency := defaultConcurrency
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			concurrency = n
		}
	}

	srv, err := worker.NewServer(cfg.RedisURL, concurrency)
	if err != nil {
		log.Fatalf("Failed to create worker: %v", err)
	}

	mux := worker.NewMux(worker.NewRecommendationProcessor(svc), workerMetrics)

	slog.Info("Starting worker", "concurrency", concurrency)
	if err := srv.Start(mux); err != nil {
		log.Fatalf("Worker failed: %v", err)
	}

	<-ctx.Done()
	slog.Info("Shutting down worker...")
	srv.Shutdown()
}
