package inference

const (
	openAIEndpoint     = "https://api.openai.com/v1/chat/completions"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAIProvider implements Provider for OpenAI API
type OpenAIProvider struct {
	*chatClient
}

// NewOpenAIProvider creates a new OpenAI inference provider
func NewOpenAIProvider(apiKey string, opts ...Option) *OpenAIProvider {
	return &OpenAIProvider{newChatClient(ProviderOpenAI, openAIEndpoint, apiKey, openAIDefaultModel, opts...)}
}
