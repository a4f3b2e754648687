package features

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/socialchef/moodbite/internal/cache"
	"github.com/socialchef/moodbite/internal/errors"
	"github.com/socialchef/moodbite/internal/httpclient"
	"github.com/socialchef/moodbite/internal/metrics"
	"github.com/socialchef/moodbite/internal/utils"
)

const (
	upstreamName   = "feature-extraction"
	defaultAPIName = "process_video"
	cachePrefix    = "features:"
	maxEventBytes  = 1 << 20
)

// Client runs predictions against a Gradio Space over its REST API.
type Client struct {
	baseURL  string
	apiName  string
	token    string
	http     *http.Client
	cache    cache.Cache
	cacheTTL time.Duration
	retry    utils.RetryConfig
}

// Option customizes a Client.
type Option func(*Client)

// WithAPIName selects the Space endpoint, without the leading slash.
func WithAPIName(name string) Option {
	return func(c *Client) {
		if name = strings.Trim(name, "/"); name != "" {
			c.apiName = name
		}
	}
}

// WithToken sends a Hugging Face token for private Spaces.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.http = client }
}

// WithCache caches results of URL extractions for ttl.
func WithCache(store cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = store
		c.cacheTTL = ttl
	}
}

// WithAttemptTimeout bounds each prediction attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retry.Timeout = d
		}
	}
}

// WithRetryConfig replaces the retry policy.
func WithRetryConfig(cfg utils.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// New creates a client for the Space at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiName:  defaultAPIName,
		cacheTTL: 24 * time.Hour,
		retry:    utils.UpstreamRetryConfig(45 * time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.New(2*c.retry.Timeout, httpclient.WithUserAgent("moodbite"))
	}
	c.retry.Retryable = isRetryable
	return c
}

// Extract runs the prediction on a publicly reachable video URL.
func (c *Client) Extract(ctx context.Context, locator string) (*Features, error) {
	key := cache.HashKey(cachePrefix, locator)
	if c.cache != nil {
		cached, hit := cache.GetJSON[map[string]any](ctx, c.cache, key)
		metrics.RecordCacheLookup(ctx, hit)
		if hit {
			if f, err := ParseResult(*cached); err == nil {
				slog.DebugContext(ctx, "Feature cache hit", "key", key)
				return f, nil
			}
		}
	}

	raw, err := c.predict(ctx, fileData{Path: locator, URL: locator, Meta: fileMeta{Type: "gradio.FileData"}})
	if err != nil {
		return nil, err
	}
	f, err := ParseResult(raw)
	if err != nil {
		return nil, err
	}

	cache.SetJSON(ctx, c.cache, key, raw, c.cacheTTL)
	return f, nil
}

// ExtractUpload sends the video bytes to the Space and runs the prediction
// on the stored copy. Uploads are not cached.
func (c *Client) ExtractUpload(ctx context.Context, filename string, r io.Reader) (*Features, error) {
	path, err := c.upload(ctx, filename, r)
	if err != nil {
		return nil, err
	}

	raw, err := c.predict(ctx, fileData{Path: path, OrigName: filename, Meta: fileMeta{Type: "gradio.FileData"}})
	if err != nil {
		return nil, err
	}
	return ParseResult(raw)
}

type fileMeta struct {
	Type string `json:"_type"`
}

type fileData struct {
	Path     string   `json:"path"`
	URL      string   `json:"url,omitempty"`
	OrigName string   `json:"orig_name,omitempty"`
	Meta     fileMeta `json:"meta"`
}

type videoInput struct {
	Video fileData `json:"video"`
}

type callRequest struct {
	Data []videoInput `json:"data"`
}

type callResponse struct {
	EventID string `json:"event_id"`
}

func (c *Client) predict(ctx context.Context, file fileData) (raw map[string]any, err error) {
	startTime := time.Now()
	defer func() {
		metrics.RecordUpstreamCall(ctx, upstreamName, "predict", startTime, err)
	}()

	body, err := json.Marshal(callRequest{Data: []videoInput{{Video: file}}})
	if err != nil {
		return nil, errors.NewInternalError("failed to encode prediction request", "FEATURE_REQUEST_ENCODING", err)
	}

	raw, err = utils.WithRetry(ctx, func(attemptCtx context.Context) (map[string]any, error) {
		eventID, err := c.submit(attemptCtx, body)
		if err != nil {
			return nil, err
		}
		return c.await(attemptCtx, eventID)
	}, c.retry)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewUpstreamUnavailableError("feature extraction did not complete", "FEATURE_TIMEOUT", err)
	}
	return raw, nil
}

func (c *Client) callURL(eventID string) string {
	u := c.baseURL + "/gradio_api/call/" + c.apiName
	if eventID != "" {
		u += "/" + eventID
	}
	return u
}

func (c *Client) submit(ctx context.Context, body []byte) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.callURL(""), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(req)
	if err != nil {
		return "", err
	}

	var call callResponse
	if err := json.Unmarshal(respBody, &call); err != nil || call.EventID == "" {
		return "", errors.NewUpstreamMalformedError("feature extraction did not return an event id", "FEATURE_NO_EVENT", err)
	}
	return call.EventID, nil
}

// await reads the event stream for one prediction until it completes or fails.
func (c *Client) await(ctx context.Context, eventID string) (map[string]any, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.callURL(eventID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.NewUpstreamUnavailableError("feature extraction request failed", "FEATURE_UNAVAILABLE", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusFailure(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventBytes)

	var event string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			switch event {
			case "complete":
				return completeResult(data)
			case "error":
				return nil, errors.NewUpstreamUnavailableError(
					"feature extraction failed: "+errorDetail(data), "FEATURE_EXTRACTION_FAILED", nil)
			}
		case line == "":
			event = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewUpstreamUnavailableError("feature extraction stream broke", "FEATURE_UNAVAILABLE", err)
	}
	return nil, errors.NewUpstreamUnavailableError("feature extraction stream ended without a result", "FEATURE_STREAM_CLOSED", nil)
}

func completeResult(data string) (map[string]any, error) {
	var outputs []any
	if err := json.Unmarshal([]byte(data), &outputs); err != nil {
		return nil, errors.NewUpstreamMalformedError("feature extraction result is not a JSON list", "FEATURE_MALFORMED", err)
	}
	raw, ok := resultFromData(outputs)
	if !ok {
		return nil, errors.NewUpstreamMalformedError("feature extraction result has no mapping", "FEATURE_MALFORMED", nil)
	}
	return raw, nil
}

func errorDetail(data string) string {
	var msg string
	if json.Unmarshal([]byte(data), &msg) == nil && msg != "" {
		return msg
	}
	if data == "" || data == "null" {
		return "no detail"
	}
	return data
}

func (c *Client) upload(ctx context.Context, filename string, r io.Reader) (path string, err error) {
	startTime := time.Now()
	defer func() {
		metrics.RecordUpstreamCall(ctx, upstreamName, "upload", startTime, err)
	}()

	// Stream the form so large videos are not buffered in memory
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("files", filename)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = writer.Close()
		}
		pw.CloseWithError(err)
	}()

	uploadCtx, cancel := context.WithTimeout(ctx, c.retry.Timeout)
	defer cancel()

	req, err := c.newRequest(uploadCtx, http.MethodPost, c.baseURL+"/gradio_api/upload", pr)
	if err != nil {
		pr.CloseWithError(err)
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	respBody, err := c.do(req)
	if err != nil {
		pr.CloseWithError(err)
		return "", err
	}

	var paths []string
	if err := json.Unmarshal(respBody, &paths); err != nil || len(paths) == 0 || paths[0] == "" {
		return "", errors.NewUpstreamMalformedError("feature extraction upload returned no file path", "FEATURE_UPLOAD_MALFORMED", err)
	}
	return paths[0], nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(httpclient.WithUpstream(ctx, upstreamName), method, url, body)
	if err != nil {
		return nil, errors.NewInternalError("failed to build feature extraction request", "FEATURE_REQUEST_BUILD", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do sends a request that answers with a small JSON body.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.NewUpstreamUnavailableError("feature extraction request failed", "FEATURE_UNAVAILABLE", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusFailure(resp)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEventBytes))
	if err != nil {
		return nil, errors.NewUpstreamUnavailableError("feature extraction response could not be read", "FEATURE_UNAVAILABLE", err)
	}
	return body, nil
}

// statusError is a non-2xx answer from the Space.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

func statusFailure(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return errors.NewUpstreamUnavailableError(
		fmt.Sprintf("feature extraction API error (status %d)", resp.StatusCode),
		"FEATURE_UNAVAILABLE",
		&statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))},
	)
}

// isRetryable retries transport failures, timeouts, 429 and 5xx answers.
func isRetryable(err error) bool {
	var se *statusError
	if stderrors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return utils.IsRetryableError(err, nil)
}
