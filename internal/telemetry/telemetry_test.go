package telemetry

import (
	"context"
	"testing"
)

func TestInitTelemetry(t *testing.T) {
	// Empty endpoint falls back to the exporter defaults and must not fail
	shutdown, err := InitTelemetry(context.Background(), "test-service", "v1.0.0", "test", "", nil)
	if err != nil {
		t.Fatalf("InitTelemetry failed: %v", err)
	}
	if shutdown != nil {
		defer shutdown(context.Background())
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw  string
		want Endpoint
	}{
		{
			raw:  "http://localhost:4318",
			want: Endpoint{Host: "localhost:4318", TracePath: "/v1/traces", LogPath: "/v1/logs", MetricPath: "/v1/metrics", Insecure: true},
		},
		{
			raw:  "https://otlp-gateway.grafana.net/otlp",
			want: Endpoint{Host: "otlp-gateway.grafana.net", TracePath: "/otlp/v1/traces", LogPath: "/otlp/v1/logs", MetricPath: "/otlp/v1/metrics"},
		},
		{
			raw:  "https://collector.example.com/base/v1/traces",
			want: Endpoint{Host: "collector.example.com", TracePath: "/base/v1/traces", LogPath: "/base/v1/logs", MetricPath: "/base/v1/metrics"},
		},
		{
			raw:  "",
			want: Endpoint{TracePath: "/v1/traces", LogPath: "/v1/logs", MetricPath: "/v1/metrics"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseEndpoint(tt.raw); got != tt.want {
				t.Errorf("ParseEndpoint(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders("Authorization=Basic abc, x-scope = tenant,broken")
	if len(got) != 2 {
		t.Fatalf("expected 2 headers, got %v", got)
	}
	if got["Authorization"] != "Basic abc" {
		t.Errorf("unexpected Authorization %q", got["Authorization"])
	}
	if got["x-scope"] != "tenant" {
		t.Errorf("unexpected x-scope %q", got["x-scope"])
	}
	if ParseHeaders("  ") != nil {
		t.Error("expected nil for empty input")
	}
}

func TestTracer(t *testing.T) {
	if Tracer("test-tracer") == nil {
		t.Fatal("Tracer returned nil")
	}
}
