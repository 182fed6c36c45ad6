package stt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"senaibot/core"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

const (
	defaultBaseURL = "wss://api.deepgram.com"
	frameBytes     = 3200 // 100 ms of 16 kHz mono PCM
)

// DeepgramConfig holds configuration options for Deepgram STT
type DeepgramConfig struct {
	APIKey         string            `json:"api_key,omitempty"`
	BaseURL        string            `json:"base_url"`
	Model          string            `json:"model"`
	Language       string            `json:"language"`
	Punctuate      bool              `json:"punctuate"`
	SmartFormat    bool              `json:"smart_format"`
	Numerals       bool              `json:"numerals"`
	Keyterms       []string          `json:"keyterms"`
	Extra          map[string]string `json:"extra"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"` // Upper bound for one utterance round trip.
}

// DefaultConfig returns a default configuration for Deepgram STT
func DefaultConfig() DeepgramConfig {
	return DeepgramConfig{
		BaseURL:        defaultBaseURL,
		Model:          "nova-2",
		Language:       "pt-BR",
		Punctuate:      true,
		SmartFormat:    true,
		TimeoutSeconds: 30,
	}
}

// DeepgramSTT opens one live-transcription stream per utterance, pushes the
// whole capture, finalizes it and joins the final transcripts.
type DeepgramSTT struct {
	config DeepgramConfig
	logger *core.Logger
	dialer *websocket.Dialer
}

func NewDeepgramSTT(config DeepgramConfig, logger *core.Logger) *DeepgramSTT {
	if logger == nil {
		logger = core.GetLogger()
	}
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Language == "" {
		config.Language = defaults.Language
	}
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = defaults.TimeoutSeconds
	}
	return &DeepgramSTT{
		config: config,
		logger: logger.With(map[string]interface{}{"component": "stt", "provider": "deepgram"}),
	}
}

func (d *DeepgramSTT) Name() string {
	return "deepgram"
}

func (d *DeepgramSTT) Init(ctx context.Context) error {
	if d.config.APIKey == "" {
		return errors.New("deepgram: API key is required")
	}
	if _, err := d.listenURL(16000); err != nil {
		return fmt.Errorf("deepgram: %w", err)
	}
	d.dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	return nil
}

func (d *DeepgramSTT) Cleanup() error {
	return nil
}

func (d *DeepgramSTT) listenURL(sampleRate int) (string, error) {
	base, err := url.Parse(strings.TrimRight(d.config.BaseURL, "/") + "/v1/listen")
	if err != nil {
		return "", err
	}

	q := base.Query()
	q.Set("model", d.config.Model)
	q.Set("language", d.config.Language)
	q.Set("punctuate", strconv.FormatBool(d.config.Punctuate))
	q.Set("smart_format", strconv.FormatBool(d.config.SmartFormat))
	q.Set("numerals", strconv.FormatBool(d.config.Numerals))
	q.Set("interim_results", "false")
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(sampleRate))
	q.Set("channels", "1")
	for _, term := range d.config.Keyterms {
		q.Add("keyterm", term)
	}
	for key, value := range d.config.Extra {
		q.Set(key, value)
	}

	base.RawQuery = q.Encode()
	return base.String(), nil
}

func (d *DeepgramSTT) Recognize(ctx context.Context, chunk core.AudioChunk) core.Recognition {
	if d.dialer == nil {
		return core.RecognitionFailed{Err: errors.New("deepgram: service not initialized")}
	}
	if chunk.Format != core.PCM || chunk.Channels != 1 {
		return core.RecognitionFailed{Err: fmt.Errorf("deepgram: expected mono PCM audio, got %s/%d", chunk.Format, chunk.Channels)}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(d.config.TimeoutSeconds)*time.Second)
	defer cancel()

	wsURL, err := d.listenURL(chunk.SampleRate)
	if err != nil {
		return core.RecognitionFailed{Err: fmt.Errorf("deepgram: build url: %w", err)}
	}
	headers := http.Header{"Authorization": {"Token " + d.config.APIKey}}
	conn, resp, err := d.dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return core.RecognitionFailed{Err: fmt.Errorf("deepgram: connect: status %d: %w", resp.StatusCode, err)}
		}
		return core.RecognitionFailed{Err: fmt.Errorf("deepgram: connect: %w", err)}
	}
	defer conn.Close()

	// Unblock reads when the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := d.stream(conn, chunk.Data); err != nil {
		return core.RecognitionFailed{Err: fmt.Errorf("deepgram: send audio: %w", err)}
	}

	text, err := d.collect(conn)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return core.RecognitionFailed{Err: fmt.Errorf("deepgram: %w", err)}
	}
	if text == "" {
		return core.NoMatch{Reason: "empty transcript"}
	}
	return core.Recognized{Text: text}
}

func (d *DeepgramSTT) stream(conn *websocket.Conn, data []byte) error {
	for start := 0; start < len(data); start += frameBytes {
		end := min(start+frameBytes, len(data))
		if err := conn.WriteMessage(websocket.BinaryMessage, data[start:end]); err != nil {
			return err
		}
	}
	for _, control := range []string{"Finalize", "CloseStream"} {
		msg, err := sonic.Marshal(controlMessage{Type: control})
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return err
		}
	}
	return nil
}

// collect reads until the server acknowledges CloseStream with its Metadata
// message or closes the socket.
func (d *DeepgramSTT) collect(conn *websocket.Conn) (string, error) {
	var parts []string
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return strings.Join(parts, " "), nil
			}
			return "", fmt.Errorf("read: %w", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var base struct {
			Type string `json:"type"`
		}
		if err := sonic.Unmarshal(message, &base); err != nil {
			return "", fmt.Errorf("parse message type: %w", err)
		}

		switch base.Type {
		case "Results":
			var result listenResults
			if err := sonic.Unmarshal(message, &result); err != nil {
				return "", fmt.Errorf("parse results: %w", err)
			}
			if transcript := result.final(); transcript != "" {
				d.logger.Debug("final transcript", "text", transcript)
				parts = append(parts, transcript)
			}
		case "Metadata":
			return strings.Join(parts, " "), nil
		case "Error":
			var failure listenError
			_ = sonic.Unmarshal(message, &failure)
			return "", fmt.Errorf("server error: %s", failure.Description)
		default:
			d.logger.Debug("ignoring message", "type", base.Type)
		}
	}
}

type controlMessage struct {
	Type string `json:"type"`
}

type listenResults struct {
	Type         string `json:"type"`
	IsFinal      bool   `json:"is_final"`
	SpeechFinal  bool   `json:"speech_final"`
	FromFinalize bool   `json:"from_finalize,omitempty"`
	Channel      struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (r listenResults) final() string {
	if !(r.IsFinal || r.SpeechFinal || r.FromFinalize) || len(r.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Channel.Alternatives[0].Transcript)
}

type listenError struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Message     string `json:"message"`
}
