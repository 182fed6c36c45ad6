package factories

import (
	"context"
	"fmt"

	"senaibot/conversation"
	"senaibot/core"
	stthandler "senaibot/handlers/stt"
	ttshandler "senaibot/handlers/tts"
	"senaibot/handlers/turn"
	"senaibot/handlers/voice"
	azurestt "senaibot/services/azure/stt"
	azuretts "senaibot/services/azure/tts"
	openaillm "senaibot/services/openai/llm"
	"senaibot/services/unavailable"
	"senaibot/session"

	"github.com/bytedance/sonic"
)

// SessionLLMConfig bundles turn handling config with the LLM provider selection.
type SessionLLMConfig struct {
	// HandlerConfig controls the turn controller (apology prefix, completion options, timeout).
	HandlerConfig turn.TurnConfig `json:"handler"`
	// ServiceConfig selects and configures the provider. Set exactly one field.
	ServiceConfig LLMFactoryConfig `json:"service"`
}

// SessionSTTConfig bundles recognition handler config with the STT provider selection.
type SessionSTTConfig struct {
	HandlerConfig stthandler.STTConfig `json:"handler"`
	ServiceConfig STTFactoryConfig     `json:"service"`
}

// SessionTTSConfig bundles speech dispatcher config with the TTS provider selection.
type SessionTTSConfig struct {
	HandlerConfig ttshandler.TTSConfig `json:"handler"`
	ServiceConfig TTSFactoryConfig     `json:"service"`
}

// SessionConfig is the per-session part of settings.json.
type SessionConfig struct {
	SystemPrompt string            `json:"system_prompt"`
	LLM          SessionLLMConfig  `json:"llm"`
	STT          SessionSTTConfig  `json:"stt"`
	TTS          SessionTTSConfig  `json:"tts"`
	Voice        voice.VoiceConfig `json:"voice"`
}

// DefaultSessionConfig selects Azure OpenAI and Azure Speech with empty
// credentials; InjectAPIKeys fills them from the environment.
func DefaultSessionConfig() SessionConfig {
	sttCfg := azurestt.DefaultConfig()
	ttsCfg := azuretts.DefaultConfig()
	llmCfg := openaillm.Config{AzureAPIVersion: openaillm.DefaultAzureAPIVersion}
	return SessionConfig{
		SystemPrompt: conversation.DefaultSystemPrompt,
		LLM: SessionLLMConfig{
			HandlerConfig: turn.DefaultConfig(),
			ServiceConfig: LLMFactoryConfig{AzureOpenAIConfig: &llmCfg},
		},
		STT: SessionSTTConfig{
			HandlerConfig: stthandler.DefaultConfig(),
			ServiceConfig: STTFactoryConfig{AzureConfig: &sttCfg},
		},
		TTS: SessionTTSConfig{
			HandlerConfig: ttshandler.DefaultConfig(),
			ServiceConfig: TTSFactoryConfig{AzureConfig: &ttsCfg},
		},
		Voice: voice.DefaultConfig(),
	}
}

// SessionConfigFromJSON parses a JSON blob into a SessionConfig, starting from
// DefaultSessionConfig so that any fields absent from the JSON retain their defaults.
// API keys should be injected afterwards rather than stored in config files.
func SessionConfigFromJSON(data []byte) (SessionConfig, error) {
	cfg := DefaultSessionConfig()
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return SessionConfig{}, fmt.Errorf("session config: %w", err)
	}
	return cfg, nil
}

// HandlerConfig returns the config each new session is built with.
func (c SessionConfig) HandlerConfig() session.Config {
	return session.Config{
		SystemPrompt: c.SystemPrompt,
		Turn:         c.LLM.HandlerConfig,
		STT:          c.STT.HandlerConfig,
		TTS:          c.TTS.HandlerConfig,
		Voice:        c.Voice,
	}
}

// APIKeys holds credentials read from the environment.
// Pass to SessionConfig.InjectAPIKeys after loading from JSON so that
// secrets are never stored in config files.
type APIKeys struct {
	AzureOpenAIEndpoint   string
	AzureOpenAIKey        string
	AzureOpenAIDeployment string
	AzureSpeechKey        string
	AzureSpeechRegion     string
	OpenAI                string
	Groq                  string
	DeepSeek              string
	OpenRouter            string
	Mistral               string
	Deepgram              string
	ElevenLabs            string
}

// InjectAPIKeys applies credentials only where the config leaves them empty,
// so values already set in the config file are preserved.
func (c *SessionConfig) InjectAPIKeys(keys APIKeys) {
	injectLLMKeys(&c.LLM.ServiceConfig, keys)

	if az := c.STT.ServiceConfig.AzureConfig; az != nil {
		az.APIKey = orDefault(az.APIKey, keys.AzureSpeechKey)
		az.Region = orDefault(az.Region, keys.AzureSpeechRegion)
	}
	if w := c.STT.ServiceConfig.WhisperConfig; w != nil {
		w.APIKey = orDefault(w.APIKey, keys.OpenAI)
	}
	if dg := c.STT.ServiceConfig.DeepgramConfig; dg != nil {
		dg.APIKey = orDefault(dg.APIKey, keys.Deepgram)
	}

	if az := c.TTS.ServiceConfig.AzureConfig; az != nil {
		az.APIKey = orDefault(az.APIKey, keys.AzureSpeechKey)
		az.Region = orDefault(az.Region, keys.AzureSpeechRegion)
	}
	if o := c.TTS.ServiceConfig.OpenAIConfig; o != nil {
		o.APIKey = orDefault(o.APIKey, keys.OpenAI)
	}
	if el := c.TTS.ServiceConfig.ElevenLabsConfig; el != nil {
		el.APIKey = orDefault(el.APIKey, keys.ElevenLabs)
	}
}

// injectLLMKeys applies the relevant API key to a single LLMFactoryConfig.
func injectLLMKeys(cfg *LLMFactoryConfig, keys APIKeys) {
	if az := cfg.AzureOpenAIConfig; az != nil {
		az.APIKey = orDefault(az.APIKey, keys.AzureOpenAIKey)
		az.AzureEndpoint = orDefault(az.AzureEndpoint, keys.AzureOpenAIEndpoint)
		az.Model = orDefault(az.Model, keys.AzureOpenAIDeployment)
	}
	if cfg.OpenAIConfig != nil {
		cfg.OpenAIConfig.APIKey = orDefault(cfg.OpenAIConfig.APIKey, keys.OpenAI)
	}
	if cfg.GroqConfig != nil {
		cfg.GroqConfig.APIKey = orDefault(cfg.GroqConfig.APIKey, keys.Groq)
	}
	if cfg.DeepSeekConfig != nil {
		cfg.DeepSeekConfig.APIKey = orDefault(cfg.DeepSeekConfig.APIKey, keys.DeepSeek)
	}
	if cfg.OpenRouterConfig != nil {
		cfg.OpenRouterConfig.APIKey = orDefault(cfg.OpenRouterConfig.APIKey, keys.OpenRouter)
	}
	if cfg.MistralConfig != nil {
		cfg.MistralConfig.APIKey = orDefault(cfg.MistralConfig.APIKey, keys.Mistral)
	}
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

// SessionServices are the provider services shared by every session.
type SessionServices struct {
	LLM turn.LLMService
	STT stthandler.STTService
	TTS ttshandler.TTSService
}

// BuildServices constructs and initializes the three providers. A provider
// that cannot be built or initialized is replaced by its unavailable stand-in
// and logged, so sessions keep working without credentials.
func (c SessionConfig) BuildServices(ctx context.Context, logger *core.Logger) *SessionServices {
	if logger == nil {
		logger = core.GetLogger()
	}
	services := &SessionServices{}

	llm, err := BuildLLMService(c.LLM.ServiceConfig, logger)
	if err == nil {
		err = llm.Init(ctx)
	}
	if err != nil {
		logger.Warn("language model unavailable, using fixed reply", "error", err)
		llm = unavailable.NewLLM(err)
	}
	services.LLM = llm

	stt, err := BuildSTTService(c.STT.ServiceConfig, logger)
	if err == nil {
		err = stt.Init(ctx)
	}
	if err != nil {
		logger.Warn("speech recognition unavailable", "error", err)
		stt = unavailable.NewSTT(err)
	}
	services.STT = stt

	tts, err := BuildTTSService(c.TTS.ServiceConfig, logger)
	if err == nil {
		err = tts.Init(ctx)
	}
	if err != nil {
		logger.Warn("speech synthesis unavailable", "error", err)
		tts = unavailable.NewTTS(err)
	}
	services.TTS = tts

	logger.Info("services ready",
		"llm", core.ServiceName(services.LLM),
		"stt", core.ServiceName(services.STT),
		"tts", core.ServiceName(services.TTS),
	)
	return services
}

// NewSession builds one session over the shared services.
func (s *SessionServices) NewSession(ctx context.Context, id string, mic core.Microphone, speaker core.Speaker, config session.Config, logger *core.Logger) (*session.Session, error) {
	return session.New(ctx, id, session.Deps{
		LLM:        s.LLM,
		STT:        s.STT,
		TTS:        s.TTS,
		Microphone: mic,
		Speaker:    speaker,
	}, config, logger)
}

// Cleanup releases every service, returning the first error.
func (s *SessionServices) Cleanup() error {
	var first error
	for _, svc := range []core.IService{s.LLM, s.STT, s.TTS} {
		if svc == nil {
			continue
		}
		if err := svc.Cleanup(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
