package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"senaibot/core"
	"senaibot/utils/audio"

	"github.com/sashabaranov/go-openai"
)

// WhisperConfig holds configuration for the Whisper transcription service.
type WhisperConfig struct {
	APIKey   string `json:"api_key,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
	Model    string `json:"model"`
	Language string `json:"language"` // ISO-639-1, e.g. "pt".
}

// DefaultConfig returns a WhisperConfig with sensible defaults
func DefaultConfig() WhisperConfig {
	return WhisperConfig{
		Model:    openai.Whisper1,
		Language: "pt",
	}
}

// WhisperSTT recognizes one utterance per request through the transcription endpoint.
type WhisperSTT struct {
	config WhisperConfig
	logger *core.Logger

	mu            sync.RWMutex
	client        *openai.Client
	isInitialized bool
}

func NewWhisperSTT(config WhisperConfig, logger *core.Logger) *WhisperSTT {
	if logger == nil {
		logger = core.GetLogger()
	}
	defaults := DefaultConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Language == "" {
		config.Language = defaults.Language
	}
	return &WhisperSTT{
		config: config,
		logger: logger.With(map[string]interface{}{"component": "stt", "provider": "openai-whisper"}),
	}
}

func (s *WhisperSTT) Name() string {
	return "openai-whisper"
}

func (s *WhisperSTT) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config.APIKey == "" {
		return errors.New("openai-whisper: API key is required")
	}
	cfg := openai.DefaultConfig(s.config.APIKey)
	if s.config.BaseURL != "" {
		cfg.BaseURL = s.config.BaseURL
	}
	s.client = openai.NewClientWithConfig(cfg)
	s.isInitialized = true
	return nil
}

func (s *WhisperSTT) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = nil
	s.isInitialized = false
	return nil
}

// Recognize uploads chunk as a WAV file. Chunk must be 16-bit PCM.
func (s *WhisperSTT) Recognize(ctx context.Context, chunk core.AudioChunk) core.Recognition {
	s.mu.RLock()
	client, ok := s.client, s.isInitialized
	s.mu.RUnlock()
	if !ok {
		return core.RecognitionFailed{Err: errors.New("openai-whisper: service not initialized")}
	}
	if chunk.Format != core.PCM {
		return core.RecognitionFailed{Err: fmt.Errorf("openai-whisper: expected PCM audio, got %s", chunk.Format)}
	}

	wav, err := audio.WrapWAV(chunk.Data, chunk.Channels, chunk.SampleRate)
	if err != nil {
		return core.RecognitionFailed{Err: fmt.Errorf("openai-whisper: %w", err)}
	}

	resp, err := client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.config.Model,
		FilePath: "speech.wav",
		Reader:   bytes.NewReader(wav),
		Language: s.config.Language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return core.RecognitionFailed{Err: fmt.Errorf("openai-whisper: %w", err)}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return core.NoMatch{Reason: "empty transcript"}
	}
	s.logger.Debug("transcription finished", "chars", len(text))
	return core.Recognized{Text: text}
}
