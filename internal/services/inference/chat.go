package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/socialchef/moodbite/internal/errors"
	"github.com/socialchef/moodbite/internal/httpclient"
	"github.com/socialchef/moodbite/internal/metrics"
	"github.com/socialchef/moodbite/internal/utils"
)

const defaultAttemptTimeout = 45 * time.Second

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	TopP           float64        `json:"top_p"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatClient is the OpenAI-compatible chat completions call shared by every provider.
type chatClient struct {
	name        ProviderType
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	http        *http.Client
	retry       utils.RetryConfig
}

// Option customizes a provider.
type Option func(*chatClient)

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(c *chatClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the provider at another chat completions endpoint.
func WithBaseURL(endpoint string) Option {
	return func(c *chatClient) { c.endpoint = endpoint }
}

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *chatClient) { c.http = client }
}

// WithSampling sets temperature and max_tokens.
func WithSampling(temperature float64, maxTokens int) Option {
	return func(c *chatClient) {
		c.temperature = temperature
		if maxTokens > 0 {
			c.maxTokens = maxTokens
		}
	}
}

// WithAttemptTimeout bounds every attempt, including the retry.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *chatClient) {
		if d > 0 {
			c.retry.Timeout = d
		}
	}
}

// WithRetryConfig replaces the retry policy entirely.
func WithRetryConfig(cfg utils.RetryConfig) Option {
	return func(c *chatClient) { c.retry = cfg }
}

func newChatClient(name ProviderType, endpoint, apiKey, model string, opts ...Option) *chatClient {
	c := &chatClient{
		name:        name,
		endpoint:    endpoint,
		apiKey:      apiKey,
		model:       model,
		temperature: 0.7,
		maxTokens:   1024,
		retry:       utils.UpstreamRetryConfig(defaultAttemptTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		// Attempts are bounded by context; the client timeout is a backstop.
		c.http = httpclient.New(2*c.retry.Timeout, httpclient.WithUserAgent("moodbite"))
	}
	c.retry.Retryable = IsRetryableError
	return c
}

func (c *chatClient) Name() string {
	return string(c.name)
}

// Model returns the model the provider sends requests to.
func (c *chatClient) Model() string {
	return c.model
}

func (c *chatClient) Recommend(ctx context.Context, prompt Prompt) (content string, err error) {
	startTime := time.Now()
	defer func() {
		metrics.RecordUpstreamCall(ctx, string(c.name), "chat_completion", startTime, err)
	}()

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Temperature:    c.temperature,
		MaxTokens:      c.maxTokens,
		TopP:           1,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", errors.NewInternalError("failed to encode chat request", "CHAT_REQUEST_ENCODING", err)
	}

	content, err = utils.WithRetry(ctx, func(attemptCtx context.Context) (string, error) {
		return c.do(attemptCtx, body)
	}, c.retry)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return "", err
		}
		// Bare context errors from the retry loop itself
		return "", errors.NewUpstreamUnavailableError(
			fmt.Sprintf("%s request did not complete", c.name), "INFERENCE_TIMEOUT", err)
	}
	return content, nil
}

func (c *chatClient) do(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(httpclient.WithUpstream(ctx, string(c.name)), http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.NewInternalError("failed to build chat request", "CHAT_REQUEST_BUILD", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", errors.NewUpstreamUnavailableError(
			fmt.Sprintf("%s request failed", c.name), "INFERENCE_UNAVAILABLE", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", errors.NewUpstreamUnavailableError(
			fmt.Sprintf("%s response could not be read", c.name), "INFERENCE_UNAVAILABLE", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.NewUpstreamUnavailableError(
			fmt.Sprintf("%s API error (status %d): %s", c.name, resp.StatusCode, truncate(string(respBody), 512)),
			"INFERENCE_UNAVAILABLE", nil)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", errors.NewUpstreamMalformedError(
			fmt.Sprintf("%s returned an unreadable completion", c.name), "INFERENCE_MALFORMED", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.NewUpstreamMalformedError(
			fmt.Sprintf("no response from %s", c.name), "INFERENCE_EMPTY", nil)
	}

	return chatResp.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
