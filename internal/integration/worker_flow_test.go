package integration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialchef/moodbite/internal/worker"
)

func newVideoTask(t *testing.T, url string) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(worker.RecommendVideoPayload{JobID: "job-1", VideoURL: url})
	require.NoError(t, err)
	return asynq.NewTask(worker.TypeRecommendVideo, payload)
}

func TestWorkerVideoJob(t *testing.T) {
	s := newStack(t)
	p := worker.NewRecommendationProcessor(s.service)

	err := p.HandleRecommendVideo(context.Background(), newVideoTask(t, "https://videos.example.com/clip.mp4"))

	require.NoError(t, err)
	assert.Equal(t, 1, s.space.callCount())
	assert.Len(t, s.chat.userMessages(), 1)
}

func TestWorkerVideoJob_OutageIsRetried(t *testing.T) {
	s := newStack(t)
	s.chat.set(http.StatusServiceUnavailable, "")
	p := worker.NewRecommendationProcessor(s.service)

	err := p.HandleRecommendVideo(context.Background(), newVideoTask(t, "https://videos.example.com/clip.mp4"))

	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestWorkerVideoJob_MalformedIsNotRetried(t *testing.T) {
	s := newStack(t)
	s.chat.set(http.StatusOK, "no json here")
	p := worker.NewRecommendationProcessor(s.service)

	err := p.HandleRecommendVideo(context.Background(), newVideoTask(t, "https://videos.example.com/clip.mp4"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
