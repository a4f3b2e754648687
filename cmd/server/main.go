package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/sync/errgroup"

	"github.com/socialchef/moodbite/internal/api"
	"github.com/socialchef/moodbite/internal/app"
	"github.com/socialchef/moodbite/internal/config"
	"github.com/socialchef/moodbite/internal/sentry"
	"github.com/socialchef/moodbite/internal/worker"
)

func main() {
	defer sentry.Recover()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdownObservability := app.InitObservability(ctx, cfg, "")
	defer shutdownObservability()

	rdb, err := app.NewRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	svc, err := app.NewRecommender(ctx, cfg, rdb)
	if err != nil {
		log.Fatalf("Failed to build recommender: %v", err)
	}

	// Background jobs need Redis; without it only synchronous routes are served.
	var jobs api.JobQueue
	if cfg.RedisURL != "" {
		queue, err := worker.NewQueue(cfg.RedisURL, cfg.Limits.JobRetention)
		if err != nil {
			log.Fatalf("Failed to create job queue: %v", err)
		}
		defer queue.Close()
		jobs = queue
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewServer(cfg, svc, jobs).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		// Recommendations wait on two upstreams, each retried once.
		WriteTimeout: 4*cfg.Limits.UpstreamTimeout + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Starting server", "port", cfg.Port, "env", cfg.Env, "jobs", jobs != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server failed", "error", err)
		shutdownObservability()
		os.Exit(1)
	}
}
