package inference

import (
	"context"
	"log/slog"

	"github.com/socialchef/moodbite/internal/errors"
	"github.com/socialchef/moodbite/internal/metrics"
)

// FallbackProvider implements Provider with fallback logic
type FallbackProvider struct {
	primary   Provider
	secondary Provider
}

// NewFallbackProvider creates a new fallback provider
func NewFallbackProvider(primary, secondary Provider) *FallbackProvider {
	return &FallbackProvider{
		primary:   primary,
		secondary: secondary,
	}
}

func (f *FallbackProvider) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

// Recommend tries the primary provider first and moves to the secondary only
// on retryable failures.
func (f *FallbackProvider) Recommend(ctx context.Context, prompt Prompt) (string, error) {
	content, err := f.primary.Recommend(ctx, prompt)
	if err == nil {
		return content, nil
	}

	providerErr := ClassifyError(err, f.primary.Name())

	if !IsRetryableError(err) || ctx.Err() != nil {
		slog.InfoContext(ctx, "Primary provider failed with non-retryable error, not attempting fallback",
			"provider", f.primary.Name(),
			"error_type", providerErr.Type,
			"error", err.Error())
		return "", err
	}

	slog.InfoContext(ctx, "Primary provider failed with retryable error, attempting fallback",
		"provider", f.primary.Name(),
		"fallback_provider", f.secondary.Name(),
		"error_type", providerErr.Type,
		"error", err.Error())
	metrics.RecordFallback(ctx, f.primary.Name(), f.secondary.Name(), string(providerErr.Type))

	content, fallbackErr := f.secondary.Recommend(ctx, prompt)
	if fallbackErr == nil {
		slog.InfoContext(ctx, "Fallback provider succeeded",
			"fallback_provider", f.secondary.Name(),
			"primary_error_type", providerErr.Type)
		return content, nil
	}

	fallbackProviderErr := ClassifyError(fallbackErr, f.secondary.Name())
	slog.ErrorContext(ctx, "Both primary and secondary providers failed",
		"primary_error_type", providerErr.Type,
		"primary_error", err.Error(),
		"fallback_error_type", fallbackProviderErr.Type,
		"fallback_error", fallbackErr.Error())

	// A malformed answer from the fallback is still a malformed answer.
	if errors.IsType(fallbackErr, errors.ErrorTypeUpstreamMalformed) {
		return "", fallbackErr
	}
	return "", errors.NewUpstreamUnavailableError(
		"both primary and secondary providers failed",
		"PROVIDER_FALLBACK_FAILED",
		fallbackErr,
	)
}
