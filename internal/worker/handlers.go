package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/socialchef/moodbite/internal/errors"
	"github.com/socialchef/moodbite/internal/recommendation"
	"github.com/socialchef/moodbite/internal/services/features"
)

// VideoRecommender is the part of the recommender service jobs need.
type VideoRecommender interface {
	RecommendVideo(ctx context.Context, locator string) (recommendation.Recommendation, *features.Features, error)
}

type RecommendationProcessor struct {
	recommender VideoRecommender
}

func NewRecommendationProcessor(recommender VideoRecommender) *RecommendationProcessor {
	return &RecommendationProcessor{recommender: recommender}
}

// HandleRecommendVideo runs one video job. The outcome, success or error
// envelope, is written as the task result. Only upstream outages are retried.
func (p *RecommendationProcessor) HandleRecommendVideo(ctx context.Context, t *asynq.Task) error {
	var payload RecommendVideoPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	slog.InfoContext(ctx, "Processing video recommendation", "job_id", payload.JobID, "video_url", payload.VideoURL)

	rec, f, err := p.recommender.RecommendVideo(ctx, payload.VideoURL)
	if err != nil {
		appErr, ok := errors.As(err)
		if !ok {
			appErr = errors.NewInternalError("recommendation failed", "INTERNAL_ERROR", err)
		}
		writeResult(ctx, t, JobResult{Recommendation: recommendation.Failed(appErr.Code(), appErr.Message)})

		if appErr.IsRetryable() {
			return err
		}
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	result := JobResult{Recommendation: rec}
	if f != nil {
		if labels := f.Labels(); len(labels) > 0 {
			result.Metadata = labels
		}
	}
	writeResult(ctx, t, result)

	slog.InfoContext(ctx, "Video recommendation completed", "job_id", payload.JobID, "emotion", rec.Emotion)
	return nil
}

// writeResult stores the job result. Tasks built outside a server have no writer.
func writeResult(ctx context.Context, t *asynq.Task, result JobResult) {
	rw := t.ResultWriter()
	if rw == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode job result", "task_id", rw.TaskID(), "error", err)
		return
	}
	if _, err := rw.Write(data); err != nil {
		slog.ErrorContext(ctx, "Failed to write job result", "task_id", rw.TaskID(), "error", err)
	}
}
