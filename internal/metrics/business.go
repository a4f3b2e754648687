package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("moodbite/business")

	// Recommendation metrics
	RecommendationsTotal   metric.Int64Counter
	RecommendationDuration metric.Float64Histogram

	// Upstream metrics (feature extraction and inference)
	UpstreamCallsTotal metric.Int64Counter
	UpstreamDuration   metric.Float64Histogram

	// Provider fallback metrics
	ProviderFallbackTotal metric.Int64Counter

	// Feature cache metrics
	FeatureCacheLookups metric.Int64Counter

	// Rate limiting
	RateLimitedTotal metric.Int64Counter
)

func Init() error {
	var err error

	RecommendationsTotal, err = meter.Int64Counter(
		"recommendations.total",
		metric.WithDescription("Total number of recommendation requests by source and status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	RecommendationDuration, err = meter.Float64Histogram(
		"recommendation.duration",
		metric.WithDescription("End to end duration of a recommendation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}

	UpstreamCallsTotal, err = meter.Int64Counter(
		"upstream.calls.total",
		metric.WithDescription("Total number of calls to external services"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	UpstreamDuration, err = meter.Float64Histogram(
		"upstream.duration",
		metric.WithDescription("Duration of calls to external services"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 45),
	)
	if err != nil {
		return err
	}

	ProviderFallbackTotal, err = meter.Int64Counter(
		"provider.fallback.total",
		metric.WithDescription("Total number of inference provider fallback events"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	FeatureCacheLookups, err = meter.Int64Counter(
		"features.cache.lookups",
		metric.WithDescription("Feature extraction cache lookups by result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	RateLimitedTotal, err = meter.Int64Counter(
		"http.rate_limited.total",
		metric.WithDescription("Requests rejected by the rate limiter"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	return nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordRecommendation records one finished recommendation. Safe to call
// before Init.
func RecordRecommendation(ctx context.Context, source string, start time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", status(err)),
	)
	if RecommendationsTotal != nil {
		RecommendationsTotal.Add(ctx, 1, attrs)
	}
	if RecommendationDuration != nil {
		RecommendationDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}

// RecordUpstreamCall records one call to an external service.
func RecordUpstreamCall(ctx context.Context, upstream, operation string, start time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("upstream", upstream),
		attribute.String("operation", operation),
		attribute.String("status", status(err)),
	)
	if UpstreamCallsTotal != nil {
		UpstreamCallsTotal.Add(ctx, 1, attrs)
	}
	if UpstreamDuration != nil {
		UpstreamDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}

// RecordFallback records a switch from one inference provider to another.
func RecordFallback(ctx context.Context, from, to, errorType string) {
	if ProviderFallbackTotal == nil {
		return
	}
	ProviderFallbackTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from_provider", from),
		attribute.String("to_provider", to),
		attribute.String("error_type", errorType),
	))
}

// RecordCacheLookup records a feature cache hit or miss.
func RecordCacheLookup(ctx context.Context, hit bool) {
	if FeatureCacheLookups == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	FeatureCacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordRateLimited records a request rejected with 429.
func RecordRateLimited(ctx context.Context, route string) {
	if RateLimitedTotal == nil {
		return
	}
	RateLimitedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
}
