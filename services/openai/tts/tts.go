package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"senaibot/core"

	"github.com/sashabaranov/go-openai"
)

// OutputSampleRate is the rate of the raw PCM the speech endpoint returns.
const OutputSampleRate = 24000

// OpenAITTSConfig holds configuration for the OpenAI speech service.
type OpenAITTSConfig struct {
	APIKey  string  `json:"api_key,omitempty"`
	BaseURL string  `json:"base_url,omitempty"`
	Model   string  `json:"model"`
	Voice   string  `json:"voice"`
	Speed   float64 `json:"speed,omitempty"`
}

// DefaultConfig returns an OpenAITTSConfig with sensible defaults
func DefaultConfig() OpenAITTSConfig {
	return OpenAITTSConfig{
		Model: string(openai.TTSModel1),
		Voice: string(openai.VoiceNova),
	}
}

// OpenAITTS synthesizes one reply per request as 24 kHz mono PCM.
type OpenAITTS struct {
	config OpenAITTSConfig
	logger *core.Logger

	mu            sync.RWMutex
	client        *openai.Client
	isInitialized bool
}

func NewOpenAITTS(config OpenAITTSConfig, logger *core.Logger) *OpenAITTS {
	if logger == nil {
		logger = core.GetLogger()
	}
	defaults := DefaultConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Voice == "" {
		config.Voice = defaults.Voice
	}
	return &OpenAITTS{
		config: config,
		logger: logger.With(map[string]interface{}{"component": "tts", "provider": "openai"}),
	}
}

func (s *OpenAITTS) Name() string {
	return "openai-tts"
}

func (s *OpenAITTS) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config.APIKey == "" {
		return errors.New("openai-tts: API key is required")
	}
	cfg := openai.DefaultConfig(s.config.APIKey)
	if s.config.BaseURL != "" {
		cfg.BaseURL = s.config.BaseURL
	}
	s.client = openai.NewClientWithConfig(cfg)
	s.isInitialized = true
	return nil
}

func (s *OpenAITTS) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = nil
	s.isInitialized = false
	return nil
}

func (s *OpenAITTS) Synthesize(ctx context.Context, text string) (core.AudioChunk, error) {
	s.mu.RLock()
	client, ok := s.client, s.isInitialized
	s.mu.RUnlock()
	if !ok {
		return core.AudioChunk{}, errors.New("openai-tts: service not initialized")
	}

	resp, err := client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.config.Model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.config.Voice),
		ResponseFormat: openai.SpeechResponseFormatPcm,
		Speed:          s.config.Speed,
	})
	if err != nil {
		return core.AudioChunk{}, fmt.Errorf("openai-tts: %w", err)
	}
	defer resp.Close()

	pcm, err := io.ReadAll(resp)
	if err != nil {
		return core.AudioChunk{}, fmt.Errorf("openai-tts: read audio: %w", err)
	}
	if len(pcm) == 0 {
		return core.AudioChunk{}, errors.New("openai-tts: empty audio")
	}
	s.logger.Debug("speech synthesized", "bytes", len(pcm))
	return core.AudioChunk{Data: pcm, SampleRate: OutputSampleRate, Channels: 1, Format: core.PCM}, nil
}
