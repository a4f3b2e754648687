package inference

const (
	cerebrasEndpoint     = "https://api.cerebras.ai/v1/chat/completions"
	cerebrasDefaultModel = "gpt-oss-120b"
)

// CerebrasProvider implements Provider for Cerebras API
type CerebrasProvider struct {
	*chatClient
}

// NewCerebrasProvider creates a new Cerebras inference provider
func NewCerebrasProvider(apiKey string, opts ...Option) *CerebrasProvider {
	return &CerebrasProvider{newChatClient(ProviderCerebras, cerebrasEndpoint, apiKey, cerebrasDefaultModel, opts...)}
}
