package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Endpoint is an OTLP/HTTP collector address split into the pieces the
// exporters take.
type Endpoint struct {
	Host      string
	TracePath  string
	LogPath    string
	MetricPath string
	Insecure   bool
}

// ParseEndpoint splits OTEL_EXPORTER_OTLP_ENDPOINT. A "/otlp" base path is
// the Grafana Cloud layout; any other base path prefixes the /v1/* signal paths.
func ParseEndpoint(raw string) Endpoint {
	ep := Endpoint{TracePath: "/v1/traces", LogPath: "/v1/logs", MetricPath: "/v1/metrics"}
	host := raw
	switch {
	case strings.HasPrefix(host, "https://"):
		host = strings.TrimPrefix(host, "https://")
	case strings.HasPrefix(host, "http://"):
		host = strings.TrimPrefix(host, "http://")
		ep.Insecure = true
	}

	basePath := ""
	if idx := strings.Index(host, "/"); idx > 0 {
		basePath = host[idx:]
		host = host[:idx]
	}
	ep.Host = host

	basePath = strings.TrimSuffix(basePath, "/v1/traces")
	basePath = strings.TrimSuffix(basePath, "/v1/logs")
	basePath = strings.TrimSuffix(basePath, "/v1/metrics")
	basePath = strings.TrimSuffix(basePath, "/")
	if basePath != "" {
		ep.TracePath = basePath + "/v1/traces"
		ep.LogPath = basePath + "/v1/logs"
		ep.MetricPath = basePath + "/v1/metrics"
	}
	return ep
}

// ParseHeaders reads the "k1=v1,k2=v2" form of OTEL_EXPORTER_OTLP_HEADERS.
func ParseHeaders(raw string) map[string]string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if k = strings.TrimSpace(k); k != "" {
			headers[k] = strings.TrimSpace(v)
		}
	}
	return headers
}

// InitTelemetry initializes OpenTelemetry traces, logs and metrics with OTLP
// exporters, and starts Go runtime metrics.
// Returns shutdown function and error.
func InitTelemetry(ctx context.Context, serviceName, serviceVersion, env, otlpEndpoint string, headers map[string]string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
			semconv.DeploymentEnvironmentKey.String(env),
		),
	)
	if err != nil {
		return nil, err
	}

	ep := ParseEndpoint(otlpEndpoint)

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithURLPath(ep.TracePath)}
	logOpts := []otlploghttp.Option{otlploghttp.WithURLPath(ep.LogPath)}
	metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithURLPath(ep.MetricPath)}
	if ep.Host != "" {
		traceOpts = append(traceOpts, otlptracehttp.WithEndpoint(ep.Host))
		logOpts = append(logOpts, otlploghttp.WithEndpoint(ep.Host))
		metricOpts = append(metricOpts, otlpmetrichttp.WithEndpoint(ep.Host))
	}
	if len(headers) > 0 {
		traceOpts = append(traceOpts, otlptracehttp.WithHeaders(headers))
		logOpts = append(logOpts, otlploghttp.WithHeaders(headers))
		metricOpts = append(metricOpts, otlpmetrichttp.WithHeaders(headers))
	}
	if ep.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		logOpts = append(logOpts, otlploghttp.WithInsecure())
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}

	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, err
	}

	logExporter, err := otlploghttp.New(ctx, logOpts...)
	if err != nil {
		return nil, err
	}

	metricExporter, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	if err := runtime.Start(runtime.WithMeterProvider(mp)); err != nil {
		slog.Warn("Failed to start runtime metrics", "error", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("Telemetry initialized",
		"endpoint", ep.Host,
		"trace_path", ep.TracePath,
		"log_path", ep.LogPath,
		"metric_path", ep.MetricPath,
		"insecure", ep.Insecure,
	)

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), lp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

// Tracer returns a tracer with the given name
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
