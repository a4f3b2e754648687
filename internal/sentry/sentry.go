package sentry

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/socialchef/moodbite/internal/errors"
)

// Init initializes Sentry with the provided configuration.
// If DSN is empty, Sentry initialization is skipped and nil is returned.
func Init(dsn, env, serviceName, serviceVersion string) error {
	if dsn == "" {
		return nil
	}

	options := sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		ServerName:       serviceName,
		Release:          serviceVersion,
		AttachStacktrace: true,
		TracesSampleRate: 0.0, // tracing goes through OpenTelemetry
	}

	if err := sentry.Init(options); err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}

	return nil
}

// Flush waits for all pending Sentry events to be sent.
// Call this during graceful shutdown.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// Recover reports a panic to Sentry and re-panics. Use it directly with defer.
func Recover() {
	if r := recover(); r != nil {
		sentry.CurrentHub().Recover(r)
		sentry.Flush(2 * time.Second)
		panic(r)
	}
}

// ShouldReport reports whether err deserves a Sentry event. Client mistakes and
// other operational 4xx errors are expected traffic.
func ShouldReport(err error) bool {
	if err == nil {
		return false
	}
	appErr, ok := errors.As(err)
	if !ok {
		return true
	}
	return !appErr.IsOperational || appErr.StatusCode >= 500
}

// CaptureError sends err to the hub bound to ctx, tagged with its error type
// and code when it is an AppError.
func CaptureError(ctx context.Context, err error) {
	if !ShouldReport(err) {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		if appErr, ok := errors.As(err); ok {
			scope.SetTag("error_type", string(appErr.Type))
			scope.SetTag("error_code", appErr.Code())
		}
		hub.CaptureException(err)
	})
}
