package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("moodbite/worker")
)

type WorkerMetrics struct {
	jobCounter  metric.Int64Counter
	jobDuration metric.Float64Histogram
}

func NewWorkerMetrics() (*WorkerMetrics, error) {
	jobCounter, err := meter.Int64Counter(
		"worker.jobs.total",
		metric.WithDescription("Total number of worker jobs processed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	jobDuration, err := meter.Float64Histogram(
		"worker.job.duration",
		metric.WithDescription("Duration of worker jobs"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	return &WorkerMetrics{
		jobCounter:  jobCounter,
		jobDuration: jobDuration,
	}, nil
}

func (m *WorkerMetrics) RecordJob(ctx context.Context, jobType, status string, duration float64) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("job.type", jobType),
	}

	m.jobCounter.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("status", status))...))
	m.jobDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
}

// Middleware records the outcome and duration of every job.
func (m *WorkerMetrics) Middleware(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		err := h.ProcessTask(ctx, t)
		status := "success"
		if err != nil {
			status = "error"
		}
		m.RecordJob(ctx, t.Type(), status, time.Since(start).Seconds())
		return err
	})
}
