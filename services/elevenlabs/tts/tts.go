package elevenlabs

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"senaibot/core"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// OutputSampleRate is the rate of the pcm_24000 output format requested from the API.
const OutputSampleRate = 24000

// ElevenLabsTTSConfig holds configuration for the ElevenLabs TTS service
type ElevenLabsTTSConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url"`
	VoiceID string `json:"voice_id"`
	ModelID string `json:"model_id"`

	// Voice settings
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`

	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// ElevenLabsTTS synthesizes one reply per stream-input connection: it opens
// the stream, sends the text and end-of-stream, and gathers the audio until
// the server marks the generation final.
type ElevenLabsTTS struct {
	config ElevenLabsTTSConfig
	logger *core.Logger
	dialer *websocket.Dialer
}

// Client messages
type (
	// BOS (Beginning of Stream) - sent once on connect
	elBOSMessage struct {
		Text             string          `json:"text"`
		VoiceSettings    elVoiceSettings `json:"voice_settings"`
		GenerationConfig elGenConfig     `json:"generation_config"`
	}

	elVoiceSettings struct {
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
	}

	elGenConfig struct {
		ChunkLengthSchedule []int `json:"chunk_length_schedule"`
	}

	elTextMessage struct {
		Text string `json:"text"`
	}
)

// Server message: either audio or an error.
type elServerMessage struct {
	Audio   string      `json:"audio"`
	IsFinal bool        `json:"isFinal"`
	Error   interface{} `json:"error"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

// NewElevenLabsTTS creates a new ElevenLabs TTS service with the provided config
func NewElevenLabsTTS(config ElevenLabsTTSConfig, logger *core.Logger) *ElevenLabsTTS {
	if config.BaseURL == "" {
		config.BaseURL = "wss://api.elevenlabs.io/v1/text-to-speech"
	}
	if config.VoiceID == "" {
		config.VoiceID = "21m00Tcm4TlvDq8ikWAM" // Default: Rachel
	}
	if config.ModelID == "" {
		config.ModelID = "eleven_turbo_v2_5"
	}
	if config.Stability == 0 {
		config.Stability = 0.5
	}
	if config.SimilarityBoost == 0 {
		config.SimilarityBoost = 0.75
	}
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = 60
	}

	if logger == nil {
		logger = core.GetLogger()
	}
	return &ElevenLabsTTS{
		config: config,
		logger: logger.With(map[string]interface{}{"component": "tts", "provider": "elevenlabs"}),
	}
}

func (e *ElevenLabsTTS) Name() string {
	return "elevenlabs"
}

func (e *ElevenLabsTTS) Init(ctx context.Context) error {
	if e.config.APIKey == "" {
		return errors.New("elevenlabs: API key is required")
	}
	e.dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	return nil
}

func (e *ElevenLabsTTS) Cleanup() error {
	return nil
}

func (e *ElevenLabsTTS) streamURL() string {
	q := url.Values{}
	q.Set("model_id", e.config.ModelID)
	q.Set("output_format", fmt.Sprintf("pcm_%d", OutputSampleRate))
	return fmt.Sprintf("%s/%s/stream-input?%s", strings.TrimRight(e.config.BaseURL, "/"), url.PathEscape(e.config.VoiceID), q.Encode())
}

func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text string) (core.AudioChunk, error) {
	if e.dialer == nil {
		return core.AudioChunk{}, errors.New("elevenlabs: service not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(e.config.TimeoutSeconds)*time.Second)
	defer cancel()

	conn, resp, err := e.dialer.DialContext(ctx, e.streamURL(), http.Header{"xi-api-key": {e.config.APIKey}})
	if err != nil {
		if resp != nil {
			return core.AudioChunk{}, fmt.Errorf("elevenlabs: connect: status %d: %w", resp.StatusCode, err)
		}
		return core.AudioChunk{}, fmt.Errorf("elevenlabs: connect: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	bos := elBOSMessage{
		Text: " ",
		VoiceSettings: elVoiceSettings{
			Stability:       e.config.Stability,
			SimilarityBoost: e.config.SimilarityBoost,
		},
		GenerationConfig: elGenConfig{ChunkLengthSchedule: []int{120, 160, 250, 290}},
	}
	// The API expects every text chunk to end in a space; an empty text closes the stream.
	for _, msg := range []interface{}{bos, elTextMessage{Text: text + " "}, elTextMessage{Text: ""}} {
		if err := e.writeJSON(conn, msg); err != nil {
			return core.AudioChunk{}, fmt.Errorf("elevenlabs: send: %w", err)
		}
	}

	var pcm bytes.Buffer
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && pcm.Len() > 0 {
				break
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return core.AudioChunk{}, fmt.Errorf("elevenlabs: read: %w", err)
		}
		if messageType == websocket.BinaryMessage {
			pcm.Write(message)
			continue
		}

		var msg elServerMessage
		if err := sonic.Unmarshal(message, &msg); err != nil {
			return core.AudioChunk{}, fmt.Errorf("elevenlabs: parse message: %w", err)
		}
		if msg.Error != nil {
			return core.AudioChunk{}, fmt.Errorf("elevenlabs: %v: %s (code: %d)", msg.Error, msg.Message, msg.Code)
		}
		if msg.Audio != "" {
			data, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err != nil {
				return core.AudioChunk{}, fmt.Errorf("elevenlabs: decode audio: %w", err)
			}
			pcm.Write(data)
		}
		if msg.IsFinal {
			break
		}
	}

	e.logger.Debug("synthesis finished", "bytes", pcm.Len())
	return core.AudioChunk{Data: pcm.Bytes(), SampleRate: OutputSampleRate, Channels: 1, Format: core.PCM}, nil
}

func (e *ElevenLabsTTS) writeJSON(conn *websocket.Conn, msg interface{}) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
