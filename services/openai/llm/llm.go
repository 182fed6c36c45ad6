package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"senaibot/core"

	"github.com/sashabaranov/go-openai"
)

// DefaultAzureAPIVersion is the Azure OpenAI REST version the bot was built against.
const DefaultAzureAPIVersion = "2024-02-15-preview"

// OpenAILLMService implements turn.LLMService on top of go-openai. It talks to
// either Azure OpenAI (AzureEndpoint set) or an OpenAI-compatible endpoint.
type OpenAILLMService struct {
	config Config
	logger *core.Logger

	client        *openai.Client
	isInitialized bool
	mu            sync.RWMutex
}

// Config holds the configuration for the OpenAI service
type Config struct {
	APIKey string `json:"api_key,omitempty"`
	Model  string `json:"model"` // Model name, or deployment name on Azure.

	BaseURL string `json:"base_url,omitempty"` // OpenAI-compatible endpoint; empty means api.openai.com.

	AzureEndpoint   string `json:"azure_endpoint,omitempty"`
	AzureAPIVersion string `json:"azure_api_version,omitempty"`
}

// IsAzure reports whether the config targets an Azure OpenAI resource.
func (c Config) IsAzure() bool {
	return c.AzureEndpoint != ""
}

// NewOpenAILLMService creates a new instance of OpenAILLMService
func NewOpenAILLMService(config Config, logger *core.Logger) *OpenAILLMService {
	if logger == nil {
		logger = core.GetLogger()
	}
	if config.IsAzure() && config.AzureAPIVersion == "" {
		config.AzureAPIVersion = DefaultAzureAPIVersion
	}
	return &OpenAILLMService{
		config: config,
		logger: logger.With(map[string]interface{}{"component": "llm", "provider": providerName(config)}),
	}
}

func providerName(c Config) string {
	if c.IsAzure() {
		return "azure-openai"
	}
	return "openai"
}

func (s *OpenAILLMService) Name() string {
	return providerName(s.config)
}

// Init validates the configuration and builds the client. It does not call the network.
func (s *OpenAILLMService) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.APIKey == "" {
		return fmt.Errorf("%s: API key is required", s.Name())
	}
	if s.config.Model == "" {
		return fmt.Errorf("%s: model (deployment) is required", s.Name())
	}

	s.client = openai.NewClientWithConfig(s.clientConfig())
	s.isInitialized = true
	return nil
}

func (s *OpenAILLMService) clientConfig() openai.ClientConfig {
	if s.config.IsAzure() {
		cfg := openai.DefaultAzureConfig(s.config.APIKey, strings.TrimRight(s.config.AzureEndpoint, "/"))
		cfg.APIVersion = s.config.AzureAPIVersion
		deployment := s.config.Model
		cfg.AzureModelMapperFunc = func(string) string { return deployment }
		return cfg
	}
	cfg := openai.DefaultConfig(s.config.APIKey)
	if s.config.BaseURL != "" {
		cfg.BaseURL = s.config.BaseURL
	}
	return cfg
}

// Cleanup performs cleanup operations
func (s *OpenAILLMService) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = nil
	s.isInitialized = false
	return nil
}

// Complete runs a non-streaming chat completion over the whole history.
func (s *OpenAILLMService) Complete(ctx context.Context, history []core.Turn, opts core.CompletionOptions) (string, error) {
	s.mu.RLock()
	client, ok := s.client, s.isInitialized
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%s: service not initialized", s.Name())
	}
	if len(history) == 0 {
		return "", errors.New("llm: empty history")
	}

	req := openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Messages:    convertTurns(history),
		MaxTokens:   opts.MaxOutputTokens,
		Temperature: opts.Temperature,
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", describeError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: completion returned no choices")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", errors.New("llm: reply blocked by content filter")
	}
	s.logger.Debug("completion finished",
		"finish_reason", string(choice.FinishReason),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return choice.Message.Content, nil
}

// convertTurns converts conversation turns to OpenAI messages
func convertTurns(turns []core.Turn) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    convertRole(t.Role),
			Content: t.Content,
		})
	}
	return messages
}

// convertRole converts a conversation role to an OpenAI role
func convertRole(role core.Role) string {
	switch role {
	case core.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case core.RoleSystem:
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}

// ProviderError is a non-2xx answer from the completion endpoint.
type ProviderError struct {
	Status  int
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm: %s (status %d)", e.Message, e.Status)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// describeError keeps the provider's message readable when it ends up in a chat turn.
func describeError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Status: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{Status: reqErr.HTTPStatusCode, Message: http.StatusText(reqErr.HTTPStatusCode), Err: err}
	}
	return fmt.Errorf("llm: %w", err)
}
