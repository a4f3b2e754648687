package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	ErrorTypeClientInput         ErrorType = "CLIENT_INPUT_ERROR"
	ErrorTypeUpstreamUnavailable ErrorType = "UPSTREAM_UNAVAILABLE"
	ErrorTypeUpstreamMalformed   ErrorType = "UPSTREAM_MALFORMED"
	ErrorTypeConfiguration       ErrorType = "CONFIGURATION_ERROR"
	ErrorTypeRateLimit           ErrorType = "RATE_LIMIT_ERROR"
	ErrorTypeNotFound            ErrorType = "NOT_FOUND_ERROR"
	ErrorTypeInternal            ErrorType = "INTERNAL_ERROR"
)

// AppError represents a structured error for the application
type AppError struct {
	Type          ErrorType `json:"type"`
	Message       string    `json:"message"`
	StatusCode    int       `json:"statusCode"`
	ErrorCode     string    `json:"errorCode"`
	IsOperational bool      `json:"isOperational"`
	Recovery      string    `json:"recoverySuggestion,omitempty"`
	Err           error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Code returns the application-specific error code
func (e *AppError) Code() string {
	return e.ErrorCode
}

// RecoverySuggestion returns the suggestion on how to recover from the error
func (e *AppError) RecoverySuggestion() string {
	return e.Recovery
}

// IsRetryable determines if the operation that caused the error should be retried
func (e *AppError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeUpstreamUnavailable:
		return true
	default:
		return false
	}
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == t
}

// NewClientInputError creates a new client input error (400)
func NewClientInputError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeClientInput,
		Message:       message,
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewNotFoundError creates a new not found error (404)
func NewNotFoundError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeNotFound,
		Message:       message,
		StatusCode:    http.StatusNotFound,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewRateLimitError creates a new rate limit error (429)
func NewRateLimitError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeRateLimit,
		Message:       message,
		StatusCode:    http.StatusTooManyRequests,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewUpstreamUnavailableError creates a new upstream unavailable error (503).
// Network failures, timeouts and non-2xx answers from either external service land here.
func NewUpstreamUnavailableError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeUpstreamUnavailable,
		Message:       message,
		StatusCode:    http.StatusServiceUnavailable,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "The recommendation service is temporarily unavailable. Try again shortly.",
		Err:           err,
	}
}

// NewUpstreamMalformedError creates a new upstream malformed error (500)
func NewUpstreamMalformedError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeUpstreamMalformed,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "The upstream service returned an unexpected response. Retrying may help.",
		Err:           err,
	}
}

// NewConfigurationError creates a new configuration error (500).
// The process should refuse to serve traffic until it is corrected.
func NewConfigurationError(message string, errorCode string) *AppError {
	return &AppError{
		Type:          ErrorTypeConfiguration,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: false,
		Recovery:      "Check the service credentials and restart the process.",
	}
}

// NewInternalError creates a new internal error (500)
func NewInternalError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeInternal,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: false,
		Err:           err,
	}
}
