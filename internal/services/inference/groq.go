package inference

const (
	groqEndpoint     = "https://api.groq.com/openai/v1/chat/completions"
	groqDefaultModel = "llama-3.3-70b-versatile"
)

// GroqProvider implements Provider for Groq API
type GroqProvider struct {
	*chatClient
}

// NewGroqProvider creates a new Groq inference provider
func NewGroqProvider(apiKey string, opts ...Option) *GroqProvider {
	return &GroqProvider{newChatClient(ProviderGroq, groqEndpoint, apiKey, groqDefaultModel, opts...)}
}
