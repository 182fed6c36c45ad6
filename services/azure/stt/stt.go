package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"senaibot/core"
	"senaibot/utils/audio"

	"github.com/bytedance/sonic"
)

// AzureSTTConfig configures the Speech service short-audio REST recognizer.
type AzureSTTConfig struct {
	APIKey         string `json:"api_key,omitempty"`
	Region         string `json:"region"`
	Language       string `json:"language"`
	Endpoint       string `json:"endpoint,omitempty"` // Overrides the regional endpoint.
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// DefaultConfig returns an AzureSTTConfig with sensible defaults
func DefaultConfig() AzureSTTConfig {
	return AzureSTTConfig{
		Language:       "pt-BR",
		TimeoutSeconds: 30,
	}
}

// AzureSTT recognizes one utterance per request. Audio must be 16 kHz mono PCM.
type AzureSTT struct {
	config AzureSTTConfig
	logger *core.Logger
	client *http.Client
}

type recognitionResponse struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
	Offset            int64  `json:"Offset"`
	Duration          int64  `json:"Duration"`
}

func NewAzureSTT(config AzureSTTConfig, logger *core.Logger) *AzureSTT {
	if logger == nil {
		logger = core.GetLogger()
	}
	defaults := DefaultConfig()
	if config.Language == "" {
		config.Language = defaults.Language
	}
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = defaults.TimeoutSeconds
	}
	return &AzureSTT{
		config: config,
		logger: logger.With(map[string]interface{}{"component": "stt", "provider": "azure-speech"}),
	}
}

func (s *AzureSTT) Name() string {
	return "azure-speech"
}

func (s *AzureSTT) Init(ctx context.Context) error {
	if s.config.APIKey == "" {
		return errors.New("azure-speech: API key is required")
	}
	if s.config.Region == "" && s.config.Endpoint == "" {
		return errors.New("azure-speech: region is required")
	}
	s.client = &http.Client{Timeout: time.Duration(s.config.TimeoutSeconds) * time.Second}
	return nil
}

func (s *AzureSTT) Cleanup() error {
	if s.client != nil {
		s.client.CloseIdleConnections()
	}
	return nil
}

func (s *AzureSTT) endpoint() string {
	base := s.config.Endpoint
	if base == "" {
		base = fmt.Sprintf("https://%s.stt.speech.microsoft.com", s.config.Region)
	}
	q := url.Values{}
	q.Set("language", s.config.Language)
	q.Set("format", "simple")
	return strings.TrimRight(base, "/") + "/speech/recognition/conversation/cognitiveservices/v1?" + q.Encode()
}

func (s *AzureSTT) Recognize(ctx context.Context, chunk core.AudioChunk) core.Recognition {
	if s.client == nil {
		return core.RecognitionFailed{Err: errors.New("azure-speech: service not initialized")}
	}
	if chunk.Format != core.PCM {
		return core.RecognitionFailed{Err: fmt.Errorf("azure-speech: expected PCM audio, got %s", chunk.Format)}
	}
	wav, err := audio.WrapWAV(chunk.Data, chunk.Channels, chunk.SampleRate)
	if err != nil {
		return core.RecognitionFailed{Err: fmt.Errorf("azure-speech: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(), bytes.NewReader(wav))
	if err != nil {
		return core.RecognitionFailed{Err: fmt.Errorf("azure-speech: build request: %w", err)}
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.config.APIKey)
	req.Header.Set("Content-Type", fmt.Sprintf("audio/wav; codecs=audio/pcm; samplerate=%d", chunk.SampleRate))
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return core.RecognitionFailed{Err: fmt.Errorf("azure-speech: recognize: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.RecognitionFailed{Err: fmt.Errorf("azure-speech: read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return core.RecognitionFailed{Err: fmt.Errorf("azure-speech: recognize: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	var result recognitionResponse
	if err := sonic.Unmarshal(body, &result); err != nil {
		return core.RecognitionFailed{Err: fmt.Errorf("azure-speech: decode response: %w", err)}
	}
	s.logger.Debug("recognition finished", "status", result.RecognitionStatus, "duration_ticks", result.Duration)

	switch result.RecognitionStatus {
	case "Success":
		text := strings.TrimSpace(result.DisplayText)
		if text == "" {
			return core.NoMatch{Reason: "empty transcript"}
		}
		return core.Recognized{Text: text}
	case "NoMatch", "InitialSilenceTimeout", "BabbleTimeout":
		return core.NoMatch{Reason: result.RecognitionStatus}
	default:
		return core.RecognitionFailed{Err: fmt.Errorf("azure-speech: recognition status %q", result.RecognitionStatus)}
	}
}
