package inference

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/socialchef/moodbite/internal/errors"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorClass
		retryable bool
	}{
		{"rate limit status", stderrors.New("groq API error (status 429): slow down"), ErrorRateLimit, true},
		{"rate limit text", stderrors.New("Rate limit reached for model"), ErrorRateLimit, true},
		{"credit", stderrors.New("openai API error (status 402): insufficient credit"), ErrorCreditExhausted, true},
		{"server", errors.NewUpstreamUnavailableError("groq API error (status 503): ", "INFERENCE_UNAVAILABLE", nil), ErrorServer, true},
		{"client", errors.NewUpstreamUnavailableError("groq API error (status 401): bad key", "INFERENCE_UNAVAILABLE", nil), ErrorClient, false},
		{"network", errors.NewUpstreamUnavailableError("groq request failed", "INFERENCE_UNAVAILABLE", stderrors.New("dial tcp: connection refused")), ErrorNetwork, true},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), ErrorTimeout, true},
		{"malformed", errors.NewUpstreamMalformedError("no response from groq", "INFERENCE_EMPTY", nil), ErrorMalformed, false},
		{"plain unknown", stderrors.New("something odd"), ErrorUnknown, false},
		{"plain forbidden", stderrors.New("Forbidden"), ErrorClient, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err, "groq")
			if got.Type != tt.wantType {
				t.Errorf("ClassifyError() type = %q, want %q", got.Type, tt.wantType)
			}
			if got.Provider != "groq" {
				t.Errorf("ClassifyError() provider = %q, want groq", got.Provider)
			}
			if IsRetryableError(tt.err) != tt.retryable {
				t.Errorf("IsRetryableError() = %v, want %v", !tt.retryable, tt.retryable)
			}
		})
	}
}

func TestClassifyError_Nil(t *testing.T) {
	if ClassifyError(nil, "groq") != nil {
		t.Error("expected nil classification for nil error")
	}
	if IsRetryableError(nil) {
		t.Error("nil error must not be retryable")
	}
}
