package inference

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/socialchef/moodbite/internal/errors"
)

// ErrorClass is the coarse reason a provider call failed.
type ErrorClass string

const (
	ErrorRateLimit       ErrorClass = "rate_limit"
	ErrorCreditExhausted ErrorClass = "credit_exhausted"
	ErrorServer          ErrorClass = "server_error"
	ErrorNetwork         ErrorClass = "network"
	ErrorTimeout         ErrorClass = "timeout"
	ErrorClient          ErrorClass = "client_error"
	ErrorMalformed       ErrorClass = "malformed"
	ErrorUnknown         ErrorClass = "unknown"
)

// ProviderError represents a classified error from an inference provider
type ProviderError struct {
	Type     ErrorClass
	Message  string
	Provider string
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return e.Message
}

// ClassifyError analyzes an error and returns a ProviderError with classification
func ClassifyError(err error, provider string) *ProviderError {
	if err == nil {
		return nil
	}

	msg := err.Error()
	classified := func(t ErrorClass) *ProviderError {
		return &ProviderError{Type: t, Message: msg, Provider: provider}
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return classified(ErrorTimeout)
	}

	switch {
	case containsAny(msg, "status 429", "rate limit", "too many requests"):
		return classified(ErrorRateLimit)
	case containsAny(msg, "status 402", "insufficient credit", "credit exhausted", "billing"):
		return classified(ErrorCreditExhausted)
	case containsAny(msg, "status 5"):
		return classified(ErrorServer)
	case containsAny(msg, "status 4"):
		return classified(ErrorClient)
	}

	if appErr, ok := errors.As(err); ok {
		switch appErr.Type {
		case errors.ErrorTypeUpstreamMalformed:
			return classified(ErrorMalformed)
		case errors.ErrorTypeUpstreamUnavailable:
			// No HTTP status means the request never got an answer.
			return classified(ErrorNetwork)
		case errors.ErrorTypeClientInput, errors.ErrorTypeConfiguration:
			return classified(ErrorClient)
		}
	}

	switch {
	case containsAny(msg, "timeout", "deadline exceeded"):
		return classified(ErrorTimeout)
	case containsAny(msg, "server error", "internal error", "bad gateway", "service unavailable"):
		return classified(ErrorServer)
	case containsAny(msg, "connection refused", "connection reset", "no such host", "eof"):
		return classified(ErrorNetwork)
	case containsAny(msg, "bad request", "unauthorized", "forbidden"):
		return classified(ErrorClient)
	}

	return classified(ErrorUnknown)
}

// IsRetryableError reports whether a failed call is worth repeating, either
// against the same provider or a fallback.
func IsRetryableError(err error) bool {
	providerErr := ClassifyError(err, "")
	if providerErr == nil {
		return false
	}

	switch providerErr.Type {
	case ErrorRateLimit, ErrorCreditExhausted, ErrorServer, ErrorNetwork, ErrorTimeout:
		return true
	default:
		return false
	}
}

func containsAny(s string, substrs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
