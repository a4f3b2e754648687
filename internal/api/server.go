// Package api exposes the recommendation service over HTTP.
package api

import (
	"context"
	"io"

	"github.com/socialchef/moodbite/internal/config"
	"github.com/socialchef/moodbite/internal/middleware"
	"github.com/socialchef/moodbite/internal/recommendation"
	"github.com/socialchef/moodbite/internal/services/features"
	"github.com/socialchef/moodbite/internal/worker"
)

// Recommender produces normalized recommendations.
type Recommender interface {
	Recommend(ctx context.Context, input recommendation.Input) (recommendation.Recommendation, error)
	RecommendVideo(ctx context.Context, locator string) (recommendation.Recommendation, *features.Features, error)
	RecommendUpload(ctx context.Context, filename string, r io.Reader) (recommendation.Recommendation, *features.Features, error)
}

// JobQueue runs video recommendations asynchronously.
type JobQueue interface {
	Enqueue(ctx context.Context, videoURL string) (string, error)
	Status(ctx context.Context, jobID string) (*worker.JobStatus, error)
}

type Server struct {
	cfg         *config.Config
	recommender Recommender
	jobs        JobQueue
	limiter     *middleware.RateLimiter
}

// NewServer wires the handlers. jobs may be nil, in which case the job
// routes are not mounted.
func NewServer(cfg *config.Config, recommender Recommender, jobs JobQueue) *Server {
	return &Server{
		cfg:         cfg,
		recommender: recommender,
		jobs:        jobs,
		limiter:     middleware.NewRateLimiter(cfg.Limits.RatePerMinute),
	}
}
