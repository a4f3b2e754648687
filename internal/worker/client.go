package worker

import (
	"context"
	"crypto/tls"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/socialchef/moodbite/internal/errors"
	"github.com/socialchef/moodbite/internal/recommendation"
)

// ParseRedisURL parses a Redis URL and returns asynq.RedisClientOpt
func ParseRedisURL(redisURL string) (asynq.RedisClientOpt, error) {
	// Handle plain host:port format
	if !strings.HasPrefix(redisURL, "redis://") && !strings.HasPrefix(redisURL, "rediss://") {
		return asynq.RedisClientOpt{Addr: redisURL}, nil
	}

	u, err := url.Parse(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	opt := asynq.RedisClientOpt{
		Addr: u.Host,
	}

	if u.User != nil {
		opt.Username = u.User.Username()
		if password, ok := u.User.Password(); ok {
			opt.Password = password
		}
	}

	if db := strings.Trim(u.Path, "/"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return asynq.RedisClientOpt{}, fmt.Errorf("invalid redis database %q", db)
		}
		opt.DB = n
	}

	// For rediss:// (TLS), we need to set TLS config
	if u.Scheme == "rediss" {
		opt.TLSConfig = &tls.Config{ServerName: u.Hostname()}
	}

	return opt, nil
}

// JobResult is what a finished video job stores as its task result.
type JobResult struct {
	Recommendation recommendation.Recommendation `json:"recommendation"`
	// Metadata carries the emotion labels the extraction service reported.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// JobStatus is the client-facing view of a video job.
type JobStatus struct {
	ID          string     `json:"id"`
	State       string     `json:"state"`
	Retried     int        `json:"retried"`
	Result      *JobResult `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Queue enqueues video jobs and reads their state back from Redis.
type Queue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	retention time.Duration
}

// NewQueue connects to Redis for both enqueueing and inspection.
func NewQueue(redisURL string, retention time.Duration) (*Queue, error) {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Queue{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		retention: retention,
	}, nil
}

// Enqueue schedules a video recommendation and returns the job ID.
func (q *Queue) Enqueue(ctx context.Context, videoURL string) (string, error) {
	jobID := uuid.New().String()
	task, err := NewRecommendVideoTask(RecommendVideoPayload{JobID: jobID, VideoURL: videoURL}, q.retention)
	if err != nil {
		return "", errors.NewInternalError("failed to create task", "TASK_ENCODING", err)
	}

	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		return "", errors.NewInternalError("failed to enqueue task", "TASK_ENQUEUE", err)
	}
	return jobID, nil
}

// Status looks a job up by ID. Jobs past their retention are not found.
func (q *Queue) Status(_ context.Context, jobID string) (*JobStatus, error) {
	info, err := q.inspector.GetTaskInfo(QueueDefault, jobID)
	if err != nil {
		if stderrors.Is(err, asynq.ErrTaskNotFound) || stderrors.Is(err, asynq.ErrQueueNotFound) {
			return nil, errors.NewNotFoundError("job not found", "JOB_NOT_FOUND", "Jobs are kept for a limited time after they finish.")
		}
		return nil, errors.NewInternalError("failed to read job", "JOB_LOOKUP", err)
	}
	return statusFromInfo(info), nil
}

// Close closes the client and inspector connections
func (q *Queue) Close() error {
	return stderrors.Join(q.client.Close(), q.inspector.Close())
}

func statusFromInfo(info *asynq.TaskInfo) *JobStatus {
	status := &JobStatus{
		ID:      info.ID,
		State:   stateName(info.State),
		Retried: info.Retried,
	}
	if len(info.Result) > 0 {
		var result JobResult
		if err := json.Unmarshal(info.Result, &result); err == nil {
			status.Result = &result
		}
	}
	if info.State == asynq.TaskStateArchived || info.State == asynq.TaskStateRetry {
		status.Error = info.LastErr
	}
	if !info.CompletedAt.IsZero() {
		completed := info.CompletedAt
		status.CompletedAt = &completed
	}
	return status
}

// stateName reports archived tasks as failed; they will not run again.
func stateName(s asynq.TaskState) string {
	if s == asynq.TaskStateArchived {
		return "failed"
	}
	return s.String()
}
