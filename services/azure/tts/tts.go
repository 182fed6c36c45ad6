package tts

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"senaibot/core"

	"github.com/google/uuid"
)

const (
	outputFormat     = "raw-16khz-16bit-mono-pcm"
	outputSampleRate = 16000
)

// AzureTTSConfig configures the Speech service REST synthesizer.
type AzureTTSConfig struct {
	APIKey         string `json:"api_key,omitempty"`
	Region         string `json:"region"`
	Voice          string `json:"voice"`
	Language       string `json:"language"`
	Endpoint       string `json:"endpoint,omitempty"` // Overrides the regional endpoint.
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// DefaultConfig returns an AzureTTSConfig with sensible defaults
func DefaultConfig() AzureTTSConfig {
	return AzureTTSConfig{
		Voice:          "pt-BR-FranciscaNeural",
		Language:       "pt-BR",
		TimeoutSeconds: 60,
	}
}

// AzureTTS synthesizes one reply per request as 16 kHz mono PCM.
type AzureTTS struct {
	config AzureTTSConfig
	logger *core.Logger
	client *http.Client
}

func NewAzureTTS(config AzureTTSConfig, logger *core.Logger) *AzureTTS {
	if logger == nil {
		logger = core.GetLogger()
	}
	defaults := DefaultConfig()
	if config.Voice == "" {
		config.Voice = defaults.Voice
	}
	if config.Language == "" {
		config.Language = defaults.Language
	}
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = defaults.TimeoutSeconds
	}
	return &AzureTTS{
		config: config,
		logger: logger.With(map[string]interface{}{"component": "tts", "provider": "azure-speech", "voice": config.Voice}),
	}
}

func (s *AzureTTS) Name() string {
	return "azure-speech"
}

func (s *AzureTTS) Init(ctx context.Context) error {
	if s.config.APIKey == "" {
		return errors.New("azure-speech: API key is required")
	}
	if s.config.Region == "" && s.config.Endpoint == "" {
		return errors.New("azure-speech: region is required")
	}
	s.client = &http.Client{Timeout: time.Duration(s.config.TimeoutSeconds) * time.Second}
	return nil
}

func (s *AzureTTS) Cleanup() error {
	if s.client != nil {
		s.client.CloseIdleConnections()
	}
	return nil
}

func (s *AzureTTS) endpoint() string {
	base := s.config.Endpoint
	if base == "" {
		base = fmt.Sprintf("https://%s.tts.speech.microsoft.com", s.config.Region)
	}
	return strings.TrimRight(base, "/") + "/cognitiveservices/v1"
}

// buildSSML wraps text in a single voice element.
func buildSSML(language, voice, text string) (string, error) {
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(text)); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="%s"><voice name="%s">%s</voice></speak>`,
		language, voice, escaped.String(),
	), nil
}

func (s *AzureTTS) Synthesize(ctx context.Context, text string) (core.AudioChunk, error) {
	if s.client == nil {
		return core.AudioChunk{}, errors.New("azure-speech: service not initialized")
	}
	ssml, err := buildSSML(s.config.Language, s.config.Voice, text)
	if err != nil {
		return core.AudioChunk{}, fmt.Errorf("azure-speech: build ssml: %w", err)
	}

	requestID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(), strings.NewReader(ssml))
	if err != nil {
		return core.AudioChunk{}, fmt.Errorf("azure-speech: build request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.config.APIKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", outputFormat)
	req.Header.Set("X-RequestId", requestID)
	req.Header.Set("User-Agent", "senaibot")

	resp, err := s.client.Do(req)
	if err != nil {
		return core.AudioChunk{}, fmt.Errorf("azure-speech: synthesize: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.AudioChunk{}, fmt.Errorf("azure-speech: read audio: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return core.AudioChunk{}, fmt.Errorf("azure-speech: synthesize: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(body) == 0 {
		return core.AudioChunk{}, errors.New("azure-speech: empty audio")
	}

	s.logger.Debug("speech synthesized", "request_id", requestID, "bytes", len(body))
	return core.AudioChunk{Data: body, SampleRate: outputSampleRate, Channels: 1, Format: core.PCM}, nil
}
