package worker

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
)

// NewServer creates a new Asynq server for processing tasks
func NewServer(redisURL string, concurrency int) (*asynq.Server, error) {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 10
	}

	return asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: concurrency,
			Queues:      map[string]int{QueueDefault: 1},
			Logger:      &slogLogger{},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
				taskID, _ := asynq.GetTaskID(ctx)
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				slog.ErrorContext(ctx, "Task failed",
					"task_type", t.Type(),
					"task_id", taskID,
					"retried", retried,
					"max_retry", maxRetry,
					"final", stderrors.Is(err, asynq.SkipRetry) || retried >= maxRetry,
					"error", err)
			}),
		},
	), nil
}

// NewMux routes task types to the processor, wrapped in tracing, Sentry and
// metrics middlewares.
func NewMux(p *RecommendationProcessor, m *WorkerMetrics) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(OTelMiddleware, SentryMiddleware, m.Middleware)
	mux.HandleFunc(TypeRecommendVideo, p.HandleRecommendVideo)
	return mux
}

// slogLogger routes asynq's internal logging through slog.
type slogLogger struct{}

func (l *slogLogger) Debug(args ...interface{}) { slog.Debug(fmt.Sprint(args...), "component", "asynq") }
func (l *slogLogger) Info(args ...interface{})  { slog.Info(fmt.Sprint(args...), "component", "asynq") }
func (l *slogLogger) Warn(args ...interface{})  { slog.Warn(fmt.Sprint(args...), "component", "asynq") }
func (l *slogLogger) Error(args ...interface{}) { slog.Error(fmt.Sprint(args...), "component", "asynq") }
func (l *slogLogger) Fatal(args ...interface{}) {
	slog.Error(fmt.Sprint(args...), "component", "asynq")
	os.Exit(1)
}
