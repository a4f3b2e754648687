package inference

import (
	"fmt"

	"github.com/socialchef/moodbite/internal/config"
)

// Keys resolves the API key for a provider name.
type Keys func(provider string) string

// NewProvider creates the configured provider, wrapped in a FallbackProvider
// when a distinct fallback is configured. The model override applies to the
// primary provider only.
func NewProvider(cfg config.InferenceConfig, keys Keys, opts ...Option) (Provider, error) {
	primaryOpts := append([]Option{WithSampling(cfg.Temperature, cfg.MaxTokens), WithModel(cfg.Model)}, opts...)
	primary, err := newNamedProvider(cfg.Provider, keys, primaryOpts...)
	if err != nil {
		return nil, err
	}

	if !cfg.FallbackEnabled() {
		return primary, nil
	}

	secondaryOpts := append([]Option{WithSampling(cfg.Temperature, cfg.MaxTokens)}, opts...)
	secondary, err := newNamedProvider(cfg.FallbackProvider, keys, secondaryOpts...)
	if err != nil {
		return nil, err
	}
	return NewFallbackProvider(primary, secondary), nil
}

func newNamedProvider(name string, keys Keys, opts ...Option) (Provider, error) {
	switch ProviderType(name) {
	case ProviderGroq, "":
		return NewGroqProvider(keys(string(ProviderGroq)), opts...), nil
	case ProviderCerebras:
		return NewCerebrasProvider(keys(name), opts...), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(keys(name), opts...), nil
	default:
		return nil, fmt.Errorf("unknown inference provider %q", name)
	}
}
