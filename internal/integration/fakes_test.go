// Package integration runs the HTTP API and the job processor against fake
// inference and feature extraction services.
package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/socialchef/moodbite/internal/catalog"
	"github.com/socialchef/moodbite/internal/services/features"
	"github.com/socialchef/moodbite/internal/services/inference"
	"github.com/socialchef/moodbite/internal/services/recommender"
	"github.com/socialchef/moodbite/internal/utils"
)

// chatServer fakes an OpenAI compatible chat completions endpoint.
type chatServer struct {
	mu       sync.Mutex
	status   int
	content  string
	requests []map[string]any
}

func (c *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	c.mu.Lock()
	c.requests = append(c.requests, body)
	status, content := c.status, c.content
	c.mu.Unlock()

	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `{"error":{"message":"unavailable"}}`)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
	})
}

func (c *chatServer) set(status int, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
	c.content = content
}

// userMessages returns the user turn of every request received.
func (c *chatServer) userMessages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, req := range c.requests {
		msgs, _ := req["messages"].([]any)
		for _, m := range msgs {
			msg, _ := m.(map[string]any)
			if msg["role"] == "user" {
				out = append(out, msg["content"].(string))
			}
		}
	}
	return out
}

// gradioSpace fakes a feature extraction Space answering every video with result.
type gradioSpace struct {
	mu     sync.Mutex
	result string
	calls  int
}

func (g *gradioSpace) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /gradio_api/call/process_video", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		g.calls++
		g.mu.Unlock()
		_, _ = io.WriteString(w, `{"event_id":"evt-42"}`)
	})
	mux.HandleFunc("GET /gradio_api/call/process_video/evt-42", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: generating\ndata: null\n\nevent: complete\ndata: "+g.result+"\n\n")
	})
	mux.HandleFunc("POST /gradio_api/upload", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("files")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = io.Copy(io.Discard, file)
		_ = json.NewEncoder(w).Encode([]string{"/tmp/gradio/" + header.Filename})
	})
	return mux
}

func (g *gradioSpace) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type stack struct {
	chat    *chatServer
	space   *gradioSpace
	service *recommender.Service
}

// newStack builds a real recommender wired to fake upstreams.
func newStack(t *testing.T) *stack {
	t.Helper()

	chat := &chatServer{content: `{"emotion": "Calm", "products": ["Masala Chai"], "combos": []}`}
	chatSrv := httptest.NewServer(chat)
	t.Cleanup(chatSrv.Close)

	space := &gradioSpace{result: `[{"video_emotion":"happy","audio_emotion":"calm","vad_score":[0.8,-0.2,0.6],"contextual_data":{"weather":"rainy"}}]`}
	spaceSrv := httptest.NewServer(space.handler())
	t.Cleanup(spaceSrv.Close)

	retry := utils.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, BackoffFactor: 1, Timeout: 2 * time.Second}

	provider := inference.NewGroqProvider(strings.Repeat("k", 40),
		inference.WithBaseURL(chatSrv.URL),
		inference.WithRetryConfig(retry),
	)
	extractor := features.New(spaceSrv.URL, features.WithRetryConfig(retry))

	c, err := catalog.LoadEmbedded()
	require.NoError(t, err)
	svc, err := recommender.New(provider, extractor, c)
	require.NoError(t, err)

	return &stack{chat: chat, space: space, service: svc}
}
