package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/riandyrn/otelchi"
	otelchimetric "github.com/riandyrn/otelchi/metric"
	"github.com/socialchef/moodbite/internal/middleware"
	"github.com/socialchef/moodbite/internal/sentry"
	"go.opentelemetry.io/otel"
)

// Routes builds the router with the full middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(otelchi.Middleware(s.cfg.ServiceName,
		otelchi.WithChiRoutes(r),
		otelchi.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	))

	// HTTP metrics
	metricCfg := otelchimetric.NewBaseConfig(s.cfg.ServiceName, otelchimetric.WithMeterProvider(otel.GetMeterProvider()))
	r.Use(otelchimetric.NewRequestDurationMillis(metricCfg))
	r.Use(otelchimetric.NewRequestInFlight(metricCfg))
	r.Use(otelchimetric.NewResponseSizeBytes(metricCfg))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Retry-After", "Location"},
	}))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequestLogger(slog.Default()))
	r.Use(sentry.HTTPMiddleware(s.HandlePanic))

	r.Get("/", s.HandleWelcome)
	r.Get("/health", s.HandleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.JWTSecret != "" {
			r.Use(middleware.AuthMiddleware(s.cfg.JWTSecret))
		}

		// Polling a job is cheap; only requests that reach the upstreams are limited.
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Handler)
			r.Post("/api/recommendations", s.HandleRecommend)
			r.Post("/api/recommendations/upload", s.HandleUpload)
			if s.jobs != nil {
				r.Post("/api/jobs", s.HandleCreateJob)
			}
		})

		if s.jobs != nil {
			r.Get("/api/jobs/{id}", s.HandleJobStatus)
		}
	})

	return r
}
