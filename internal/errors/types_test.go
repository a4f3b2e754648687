package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := &AppError{
		Message: "something went wrong",
	}
	if err.Error() != "something went wrong" {
		t.Errorf("expected 'something went wrong', got %v", err.Error())
	}

	wrappedErr := errors.New("underlying error")
	errWithWrap := &AppError{
		Message: "failed operation",
		Err:     wrappedErr,
	}
	expected := "failed operation: underlying error"
	if errWithWrap.Error() != expected {
		t.Errorf("expected %q, got %q", expected, errWithWrap.Error())
	}
}

func TestAppError_Code(t *testing.T) {
	err := &AppError{
		ErrorCode: "ERR_CODE_123",
	}
	if err.Code() != "ERR_CODE_123" {
		t.Errorf("expected ERR_CODE_123, got %v", err.Code())
	}
}

func TestAppError_IsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want bool
	}{
		{
			name: "rate limit is retryable",
			err:  &AppError{Type: ErrorTypeRateLimit, StatusCode: http.StatusTooManyRequests},
			want: true,
		},
		{
			name: "upstream unavailable is retryable",
			err:  &AppError{Type: ErrorTypeUpstreamUnavailable, StatusCode: http.StatusServiceUnavailable},
			want: true,
		},
		{
			name: "client input is not retryable",
			err:  &AppError{Type: ErrorTypeClientInput, StatusCode: http.StatusBadRequest},
			want: false,
		},
		{
			name: "malformed upstream body is not retryable",
			err:  &AppError{Type: ErrorTypeUpstreamMalformed, StatusCode: http.StatusInternalServerError},
			want: false,
		},
		{
			name: "configuration error is not retryable",
			err:  &AppError{Type: ErrorTypeConfiguration, StatusCode: http.StatusInternalServerError},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.IsRetryable(); got != tt.want {
				t.Errorf("AppError.IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewClientInputError(t *testing.T) {
	err := NewClientInputError("invalid input", "INVALID_VECTOR", "Send three numbers")
	if err.Type != ErrorTypeClientInput {
		t.Errorf("expected client input type, got %v", err.Type)
	}
	if err.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err.StatusCode)
	}
	if err.RecoverySuggestion() != "Send three numbers" {
		t.Errorf("expected 'Send three numbers', got %v", err.RecoverySuggestion())
	}
}

func TestNewUpstreamUnavailableError(t *testing.T) {
	underlying := errors.New("dial tcp: i/o timeout")
	err := NewUpstreamUnavailableError("inference call failed", "INFERENCE_UNAVAILABLE", underlying)
	if err.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %v", err.StatusCode)
	}
	if !errors.Is(err, underlying) {
		t.Error("underlying error not reachable through Unwrap")
	}
}

func TestNewConfigurationError(t *testing.T) {
	err := NewConfigurationError("GROQ_API_KEY is required", "MISSING_CREDENTIAL")
	if err.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %v", err.StatusCode)
	}
	if err.IsOperational {
		t.Error("configuration errors must not be operational")
	}
}

func TestAs(t *testing.T) {
	base := NewUpstreamMalformedError("bad body", "BAD_BODY", nil)
	wrapped := fmt.Errorf("recommend: %w", base)

	got, ok := As(wrapped)
	if !ok {
		t.Fatal("expected AppError in chain")
	}
	if got != base {
		t.Errorf("expected the original AppError, got %v", got)
	}
	if !IsType(wrapped, ErrorTypeUpstreamMalformed) {
		t.Error("IsType should match the wrapped type")
	}

	if _, ok := As(errors.New("plain")); ok {
		t.Error("plain error must not be reported as AppError")
	}
}
