// Package inference talks to hosted chat-completion APIs that turn an
// emotion/intent/context triple into a JSON recommendation.
package inference

import "context"

// ProviderType represents the type of inference provider
type ProviderType string

const (
	ProviderGroq     ProviderType = "groq"
	ProviderCerebras ProviderType = "cerebras"
	ProviderOpenAI   ProviderType = "openai"
)

// Prompt is one chat exchange: the system instructions and the user message.
type Prompt struct {
	System string
	User   string
}

// Provider returns the raw message content the model produced. The content
// is expected to be a JSON object but is not interpreted here.
type Provider interface {
	Name() string
	Recommend(ctx context.Context, prompt Prompt) (string, error)
}
