package features

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/socialchef/moodbite/internal/cache"
	"github.com/socialchef/moodbite/internal/errors"
	"github.com/socialchef/moodbite/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResult = `[{"audio_emotion":"calm","video_emotion":"happy","vad_score":[0.8,-0.2,0.6],"contextual_data":{"time":"09:00","weather":"rainy"}}]`

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
	ttls  map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	m.ttls[key] = ttl
}

// gradioSpace fakes the two-step call API of a Space.
type gradioSpace struct {
	t         *testing.T
	calls     atomic.Int32
	failFirst int
	events    string
	lastCall  callRequest
	auth      string
	mu        sync.Mutex
}

func (g *gradioSpace) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /gradio_api/call/process_video", func(w http.ResponseWriter, r *http.Request) {
		n := g.calls.Add(1)
		if int(n) <= g.failFirst {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		g.mu.Lock()
		g.auth = r.Header.Get("Authorization")
		require.NoError(g.t, json.NewDecoder(r.Body).Decode(&g.lastCall))
		g.mu.Unlock()
		_, _ = w.Write([]byte(`{"event_id":"evt-1"}`))
	})
	mux.HandleFunc("GET /gradio_api/call/process_video/evt-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, g.events)
	})
	mux.HandleFunc("POST /gradio_api/upload", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("files")
		require.NoError(g.t, err)
		data, _ := io.ReadAll(file)
		assert.Equal(g.t, "video bytes", string(data))
		fmt.Fprintf(w, `["/tmp/gradio/abc/%s"]`, header.Filename)
	})
	return mux
}

func completeEvents(data string) string {
	return "event: generating\ndata: null\n\nevent: heartbeat\ndata: null\n\nevent: complete\ndata: " + data + "\n\n"
}

func testRetry() Option {
	return WithRetryConfig(utils.RetryConfig{
		MaxAttempts:   2,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 1,
		Timeout:       2 * time.Second,
	})
}

func TestClient_Extract(t *testing.T) {
	space := &gradioSpace{t: t, events: completeEvents(sampleResult)}
	server := httptest.NewServer(space.handler())
	defer server.Close()

	c := New(server.URL+"/", WithToken("hf_token"), testRetry())
	f, err := c.Extract(context.Background(), "https://videos.example.com/clip.mp4")

	require.NoError(t, err)
	assert.Equal(t, 0.8, f.Vector.Valence())
	assert.Equal(t, "rainy", f.Context.Weather)
	assert.Equal(t, "happy", f.VideoEmotion)
	assert.Equal(t, "Bearer hf_token", space.auth)
	require.Len(t, space.lastCall.Data, 1)
	assert.Equal(t, "https://videos.example.com/clip.mp4", space.lastCall.Data[0].Video.Path)
	assert.Equal(t, "gradio.FileData", space.lastCall.Data[0].Video.Meta.Type)
}

func TestClient_ExtractRetriesUnavailable(t *testing.T) {
	space := &gradioSpace{t: t, failFirst: 1, events: completeEvents(sampleResult)}
	server := httptest.NewServer(space.handler())
	defer server.Close()

	_, err := New(server.URL, testRetry()).Extract(context.Background(), "https://v.example.com/a.mp4")

	require.NoError(t, err)
	assert.Equal(t, int32(2), space.calls.Load())
}

func TestClient_ExtractClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := New(server.URL, testRetry()).Extract(context.Background(), "https://v.example.com/a.mp4")

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeUpstreamUnavailable, appErr.Type)
	assert.Contains(t, appErr.Message, "status 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ExtractErrorEvent(t *testing.T) {
	space := &gradioSpace{t: t, events: "event: error\ndata: \"video could not be decoded\"\n\n"}
	server := httptest.NewServer(space.handler())
	defer server.Close()

	_, err := New(server.URL, testRetry()).Extract(context.Background(), "https://v.example.com/a.mp4")

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "FEATURE_EXTRACTION_FAILED", appErr.ErrorCode)
	assert.Contains(t, appErr.Message, "video could not be decoded")
}

func TestClient_ExtractMalformedResult(t *testing.T) {
	space := &gradioSpace{t: t, events: completeEvents(`[{"vad_score":[0.8,-0.2,0.6,0.1]}]`)}
	server := httptest.NewServer(space.handler())
	defer server.Close()

	store := newMemoryCache()
	_, err := New(server.URL, testRetry(), WithCache(store, time.Hour)).Extract(context.Background(), "https://v.example.com/a.mp4")

	assert.True(t, errors.IsType(err, errors.ErrorTypeUpstreamMalformed))
	assert.Empty(t, store.items, "malformed results must not be cached")
}

func TestClient_ExtractStreamClosed(t *testing.T) {
	space := &gradioSpace{t: t, events: "event: generating\ndata: null\n\n"}
	server := httptest.NewServer(space.handler())
	defer server.Close()

	_, err := New(server.URL, WithRetryConfig(utils.RetryConfig{MaxAttempts: 1, Timeout: time.Second})).
		Extract(context.Background(), "https://v.example.com/a.mp4")

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "FEATURE_STREAM_CLOSED", appErr.ErrorCode)
}

func TestClient_ExtractUsesCache(t *testing.T) {
	space := &gradioSpace{t: t, events: completeEvents(sampleResult)}
	server := httptest.NewServer(space.handler())
	defer server.Close()

	store := newMemoryCache()
	c := New(server.URL, testRetry(), WithCache(store, 6*time.Hour))
	locator := "https://v.example.com/cached.mp4"

	first, err := c.Extract(context.Background(), locator)
	require.NoError(t, err)
	second, err := c.Extract(context.Background(), locator)
	require.NoError(t, err)

	assert.Equal(t, first.Vector, second.Vector)
	assert.Equal(t, int32(1), space.calls.Load())
	assert.Equal(t, 6*time.Hour, store.ttls[cache.HashKey("features:", locator)])
}

func TestClient_ExtractUpload(t *testing.T) {
	space := &gradioSpace{t: t, events: completeEvents(sampleResult)}
	server := httptest.NewServer(space.handler())
	defer server.Close()

	f, err := New(server.URL, testRetry()).ExtractUpload(context.Background(), "clip.mp4", strings.NewReader("video bytes"))

	require.NoError(t, err)
	assert.Equal(t, "calm", f.AudioEmotion)
	assert.Equal(t, "/tmp/gradio/abc/clip.mp4", space.lastCall.Data[0].Video.Path)
	assert.Equal(t, "clip.mp4", space.lastCall.Data[0].Video.OrigName)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := New(server.URL, testRetry(), WithAttemptTimeout(20*time.Millisecond)).
		Extract(context.Background(), "https://v.example.com/slow.mp4")

	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, 503, appErr.StatusCode)
}

func TestWithAPIName(t *testing.T) {
	c := New("https://space.example.com", WithAPIName("/predict/"))
	assert.Equal(t, "https://space.example.com/gradio_api/call/predict/e1", c.callURL("e1"))
	assert.Equal(t, defaultAPIName, New("https://x", WithAPIName("")).apiName)
}
