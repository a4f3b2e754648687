package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTransport is the base transport used by instrumented clients.
var DefaultTransport = http.DefaultTransport

type contextKey string

const upstreamKey contextKey = "httpclient.upstream"

// WithUpstream tags outbound requests made with ctx with the name of the
// external service being called ("groq", "feature-extraction").
func WithUpstream(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, upstreamKey, name)
}

// UpstreamFrom returns the name set by WithUpstream.
func UpstreamFrom(ctx context.Context) string {
	name, _ := ctx.Value(upstreamKey).(string)
	return name
}

// upstreamTransport annotates the current span and stamps the user agent.
type upstreamTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *upstreamTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	span := trace.SpanFromContext(req.Context())
	if name := UpstreamFrom(req.Context()); name != "" {
		span.SetAttributes(attribute.String("upstream.name", name))
	}
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP status %d", resp.StatusCode))
	}
	return resp, nil
}

func newOtelTransport(base http.RoundTripper, userAgent string) http.RoundTripper {
	return otelhttp.NewTransport(&upstreamTransport{base: base, userAgent: userAgent},
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			if name := UpstreamFrom(r.Context()); name != "" {
				return fmt.Sprintf("%s: %s %s", name, r.Method, r.URL.Path)
			}
			return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		}),
	)
}

type options struct {
	userAgent string
	base      http.RoundTripper
}

// Option customizes a client built by New.
type Option func(*options)

// WithUserAgent sets a User-Agent on requests that do not carry one.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithBaseTransport replaces the transport under the instrumentation layer.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

// New returns an http.Client with OpenTelemetry instrumentation. The timeout
// bounds a whole request; callers usually also bound attempts with a context.
func New(timeout time.Duration, opts ...Option) *http.Client {
	o := options{base: DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}
	return &http.Client{
		Transport: newOtelTransport(o.base, o.userAgent),
		Timeout:   timeout,
	}
}

// WrapClient wraps an existing http.Client's transport with OpenTelemetry instrumentation.
func WrapClient(client *http.Client) *http.Client {
	if client.Transport == nil {
		client.Transport = DefaultTransport
	}
	client.Transport = newOtelTransport(client.Transport, "")
	return client
}
