package sentry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/socialchef/moodbite/internal/errors"
)

func TestInitWithoutDSN(t *testing.T) {
	if err := Init("", "test", "moodbite", "1.0.0"); err != nil {
		t.Fatalf("expected nil error without DSN, got %v", err)
	}
}

func TestShouldReport(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), true},
		{"client input", apperrors.NewClientInputError("bad", "BAD", ""), false},
		{"rate limit", apperrors.NewRateLimitError("slow down", "RATE_LIMITED", ""), false},
		{"upstream unavailable", apperrors.NewUpstreamUnavailableError("down", "DOWN", nil), true},
		{"configuration", apperrors.NewConfigurationError("no key", "MISSING_CREDENTIAL"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldReport(tt.err); got != tt.want {
				t.Errorf("ShouldReport() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCaptureErrorWithoutClient(t *testing.T) {
	// Without Init the hub has no client and capture is a no-op.
	CaptureError(context.Background(), errors.New("boom"))
}

func TestHTTPMiddlewareRecoversPanic(t *testing.T) {
	fallbackCalled := false
	fallback := func(w http.ResponseWriter, r *http.Request) {
		fallbackCalled = true
		w.WriteHeader(http.StatusInternalServerError)
	}

	handler := HTTPMiddleware(fallback)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if !fallbackCalled {
		t.Error("expected fallback to be called")
	}
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rr.Code)
	}
}

func TestHTTPMiddlewarePassesThrough(t *testing.T) {
	handler := HTTPMiddleware(func(w http.ResponseWriter, r *http.Request) {
		t.Error("fallback must not run without a panic")
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", rr.Code)
	}
}
