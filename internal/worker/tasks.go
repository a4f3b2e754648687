package worker

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeRecommendVideo = "recommend:video"
)

// QueueDefault is the only queue jobs are enqueued on.
const QueueDefault = "default"

const (
	defaultMaxRetry    = 3
	defaultTaskTimeout = 5 * time.Minute
)

// RecommendVideoPayload is the payload for video recommendation tasks
type RecommendVideoPayload struct {
	JobID    string `json:"job_id"`
	VideoURL string `json:"video_url"`
}

// NewRecommendVideoTask creates a video recommendation task whose ID is the
// job ID and whose result is kept for retention after it finishes.
func NewRecommendVideoTask(payload RecommendVideoPayload, retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRecommendVideo, data,
		asynq.TaskID(payload.JobID),
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(defaultMaxRetry),
		asynq.Timeout(defaultTaskTimeout),
		asynq.Retention(retention),
	), nil
}
