package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/socialchef/moodbite"

// New creates a new slog.Logger based on the environment.
// For "production", it returns a JSON handler.
// For other environments, it returns a text handler with debug level.
// Every record is also emitted to the global OpenTelemetry logger provider.
func New(env string) *slog.Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter is New with a caller-chosen destination.
func NewWithWriter(env string, w io.Writer) *slog.Logger {
	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(w, nil)
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	return slog.New(&otelHandler{handler: handler})
}

// WithTraceContext returns a slog.Attr containing trace_id and span_id if available in the context.
func WithTraceContext(ctx context.Context) slog.Attr {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return slog.Attr{}
	}
	sc := span.SpanContext()
	return slog.Group("trace",
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}

// Since returns the elapsed milliseconds as an attribute, for request timing lines.
func Since(start time.Time) slog.Attr {
	return slog.Int64("duration_ms", time.Since(start).Milliseconds())
}

type otelHandler struct {
	handler slog.Handler
	// attrs and group mirror what was bound on the stdout handler so the OTel
	// record carries the same context.
	attrs []log.KeyValue
	group string
}

func (h *otelHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.handler.Enabled(ctx, l)
}

func (h *otelHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.handler.Handle(ctx, r); err != nil {
		return err
	}

	provider := global.GetLoggerProvider()
	if provider == nil {
		return nil
	}
	logger := provider.Logger(scopeName)

	var otelRecord log.Record
	otelRecord.SetTimestamp(r.Time)
	otelRecord.SetBody(log.StringValue(r.Message))
	otelRecord.SetSeverity(severity(r.Level))
	otelRecord.SetSeverityText(r.Level.String())
	otelRecord.AddAttributes(h.attrs...)

	r.Attrs(func(a slog.Attr) bool {
		otelRecord.AddAttributes(h.keyValue(a))
		return true
	})

	logger.Emit(ctx, otelRecord)
	return nil
}

func (h *otelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &otelHandler{
		handler: h.handler.WithAttrs(attrs),
		attrs:   append([]log.KeyValue{}, h.attrs...),
		group:   h.group,
	}
	for _, a := range attrs {
		next.attrs = append(next.attrs, h.keyValue(a))
	}
	return next
}

func (h *otelHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &otelHandler{
		handler: h.handler.WithGroup(name),
		attrs:   h.attrs,
		group:   group,
	}
}

func (h *otelHandler) keyValue(a slog.Attr) log.KeyValue {
	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	return log.KeyValue{Key: key, Value: toOTelValue(a.Value)}
}

func severity(l slog.Level) log.Severity {
	switch {
	case l >= slog.LevelError:
		return log.SeverityError
	case l >= slog.LevelWarn:
		return log.SeverityWarn
	case l >= slog.LevelInfo:
		return log.SeverityInfo
	default:
		return log.SeverityDebug
	}
}

func toOTelValue(v slog.Value) log.Value {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return log.StringValue(v.String())
	case slog.KindInt64:
		return log.Int64Value(v.Int64())
	case slog.KindBool:
		return log.BoolValue(v.Bool())
	case slog.KindFloat64:
		return log.Float64Value(v.Float64())
	case slog.KindGroup:
		group := v.Group()
		kvs := make([]log.KeyValue, 0, len(group))
		for _, a := range group {
			kvs = append(kvs, log.KeyValue{Key: a.Key, Value: toOTelValue(a.Value)})
		}
		return log.MapValue(kvs...)
	default:
		return log.StringValue(v.String())
	}
}
