package factories

import (
	"errors"

	"senaibot/core"
	"senaibot/handlers/turn"
	openaillm "senaibot/services/openai/llm"

	"github.com/bytedance/sonic"
)

// LLMFactoryConfig holds provider-specific configs for LLM service construction.
// Set exactly one provider config; the rest should be left nil.
// Every provider speaks the OpenAI chat protocol and is served by the same
// go-openai service, with Azure routing or a custom base URL.
type LLMFactoryConfig struct {
	AzureOpenAIConfig *openaillm.Config `json:"azure_openai,omitempty"`
	OpenAIConfig      *openaillm.Config `json:"openai,omitempty"`
	GroqConfig        *openaillm.Config `json:"groq,omitempty"`
	DeepSeekConfig    *openaillm.Config `json:"deepseek,omitempty"`
	OpenRouterConfig  *openaillm.Config `json:"openrouter,omitempty"`
	MistralConfig     *openaillm.Config `json:"mistral,omitempty"`
}

// UnmarshalJSON replaces the whole selection so a provider chosen in JSON
// never coexists with the default one.
func (c *LLMFactoryConfig) UnmarshalJSON(data []byte) error {
	type plain LLMFactoryConfig
	var p plain
	if err := sonic.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = LLMFactoryConfig(p)
	return nil
}

// Default base URLs for OpenAI-compatible providers.
const (
	groqBaseURL       = "https://api.groq.com/openai/v1"
	deepseekBaseURL   = "https://api.deepseek.com/v1"
	openrouterBaseURL = "https://openrouter.ai/api/v1"
	mistralBaseURL    = "https://api.mistral.ai/v1"
)

// BuildLLMService constructs an LLMService from the given factory config.
// Exactly one provider config must be non-nil.
func BuildLLMService(config LLMFactoryConfig, logger *core.Logger) (turn.LLMService, error) {
	if config.AzureOpenAIConfig != nil {
		cfg := *config.AzureOpenAIConfig
		if cfg.AzureEndpoint == "" {
			return nil, errors.New("LLMFactoryConfig: azure_openai requires an endpoint")
		}
		return openaillm.NewOpenAILLMService(cfg, logger), nil
	}
	if config.OpenAIConfig != nil {
		return buildOpenAICompatible(*config.OpenAIConfig, "", "gpt-4o-mini", logger), nil
	}
	if config.GroqConfig != nil {
		return buildOpenAICompatible(*config.GroqConfig, groqBaseURL, "llama-3.3-70b-versatile", logger), nil
	}
	if config.DeepSeekConfig != nil {
		return buildOpenAICompatible(*config.DeepSeekConfig, deepseekBaseURL, "deepseek-chat", logger), nil
	}
	if config.OpenRouterConfig != nil {
		return buildOpenAICompatible(*config.OpenRouterConfig, openrouterBaseURL, "openai/gpt-4o", logger), nil
	}
	if config.MistralConfig != nil {
		return buildOpenAICompatible(*config.MistralConfig, mistralBaseURL, "mistral-large-latest", logger), nil
	}
	return nil, errors.New("LLMFactoryConfig: no provider config specified")
}

// buildOpenAICompatible fills in the provider's base URL and model when the
// config leaves them empty.
func buildOpenAICompatible(cfg openaillm.Config, defaultBaseURL, defaultModel string, logger *core.Logger) *openaillm.OpenAILLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	cfg.AzureEndpoint = ""
	return openaillm.NewOpenAILLMService(cfg, logger)
}
