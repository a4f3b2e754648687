// Package app wires configuration into the long-lived dependencies shared by
// the HTTP server and the worker.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/socialchef/moodbite/internal/cache"
	"github.com/socialchef/moodbite/internal/catalog"
	"github.com/socialchef/moodbite/internal/config"
	"github.com/socialchef/moodbite/internal/db"
	"github.com/socialchef/moodbite/internal/logger"
	"github.com/socialchef/moodbite/internal/metrics"
	"github.com/socialchef/moodbite/internal/sentry"
	"github.com/socialchef/moodbite/internal/services/features"
	"github.com/socialchef/moodbite/internal/services/inference"
	"github.com/socialchef/moodbite/internal/services/recommender"
	"github.com/socialchef/moodbite/internal/telemetry"
)

const cachePrefix = "moodbite:"

// InitObservability sets up telemetry, Sentry, business metrics and the
// default logger. The returned func flushes and shuts them down.
func InitObservability(ctx context.Context, cfg *config.Config, component string) func() {
	var shutdownTelemetry func(context.Context) error
	if cfg.OtelExporterOTLPEndpoint != "" {
		shutdown, err := telemetry.InitTelemetry(ctx, cfg.ServiceName+component, cfg.ServiceVersion, cfg.Env,
			cfg.OtelExporterOTLPEndpoint, telemetry.ParseHeaders(cfg.OtelExporterOTLPHeaders))
		if err != nil {
			slog.Warn("Failed to init telemetry", "error", err)
		} else {
			shutdownTelemetry = shutdown
		}
	}

	if err := sentry.Init(cfg.SentryDSN, cfg.Env, cfg.ServiceName+component, cfg.ServiceVersion); err != nil {
		slog.Warn("Failed to init Sentry", "error", err)
	}

	if err := metrics.Init(); err != nil {
		slog.Warn("Failed to init business metrics", "error", err)
	}

	slog.SetDefault(logger.New(cfg.Env))

	return func() {
		if cfg.SentryDSN != "" {
			sentry.Flush(2 * time.Second)
		}
		if shutdownTelemetry != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(ctx); err != nil {
				slog.Warn("Failed to shut down telemetry", "error", err)
			}
		}
	}
}

// LoadCatalog reads the product catalog from Postgres when DATABASE_URL is
// set, otherwise from CATALOG_FILE, otherwise from the built-in list.
func LoadCatalog(ctx context.Context, cfg *config.Config) (*catalog.Catalog, error) {
	switch {
	case cfg.DatabaseURL != "":
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		c, err := catalog.NewPostgresSource(pool).Load(ctx)
		if err != nil {
			return nil, err
		}
		slog.Info("Catalog loaded", "source", "postgres", "products", c.Len())
		return c, nil
	case cfg.CatalogFile != "":
		c, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		slog.Info("Catalog loaded", "source", cfg.CatalogFile, "products", c.Len())
		return c, nil
	default:
		return catalog.LoadEmbedded()
	}
}

// NewRedis returns a Redis client when REDIS_URL is set, otherwise nil.
func NewRedis(cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	return cache.NewRedisClient(cfg.RedisURL)
}

// NewRecommender builds the recommendation service. rdb may be nil, in which
// case feature extraction results are not cached.
func NewRecommender(ctx context.Context, cfg *config.Config, rdb *redis.Client) (*recommender.Service, error) {
	c, err := LoadCatalog(ctx, cfg)
	if err != nil {
		return nil, err
	}

	provider, err := inference.NewProvider(cfg.Inference, cfg.ProviderKey,
		inference.WithAttemptTimeout(cfg.Limits.UpstreamTimeout))
	if err != nil {
		return nil, err
	}

	opts := []features.Option{
		features.WithAPIName(cfg.Features.APIName),
		features.WithToken(cfg.HFToken),
		features.WithAttemptTimeout(cfg.Limits.UpstreamTimeout),
	}
	if rdb != nil {
		opts = append(opts, features.WithCache(cache.NewRedisCache(rdb, cachePrefix), cfg.Features.CacheTTL))
	}
	extractor := features.New(cfg.Features.URL, opts...)

	slog.Info("Recommender ready",
		"provider", provider.Name(),
		"feature_service", cfg.Features.URL,
		"feature_cache", rdb != nil,
	)
	return recommender.New(provider, extractor, c)
}
