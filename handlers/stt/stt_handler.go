package stt

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"senaibot/core"
	"senaibot/utils/audio"
)

// STTService recognizes a single complete utterance.
type STTService interface {
	core.IService
	Recognize(ctx context.Context, chunk core.AudioChunk) core.Recognition
}

// STTHandler records one utterance from a capture session, converts it to the
// format the service expects and runs recognition.
type STTHandler struct {
	service STTService
	config  STTConfig
	logger  *core.Logger
}

func NewSTTHandler(service STTService, config STTConfig, logger *core.Logger) *STTHandler {
	if logger == nil {
		logger = core.GetLogger()
	}
	if config.RequiredSampleRate == 0 {
		config.RequiredSampleRate = DefaultConfig().RequiredSampleRate
	}
	if config.RequiredChannels == 0 {
		config.RequiredChannels = DefaultConfig().RequiredChannels
	}
	return &STTHandler{
		service: service,
		config:  config,
		logger:  logger.With(map[string]interface{}{"component": "stt"}),
	}
}

// RecognizeOnce records from capture and recognizes the result. The caller
// owns capture and must release it.
func (h *STTHandler) RecognizeOnce(ctx context.Context, capture core.Capture) core.Recognition {
	chunk, err := capture.Record(ctx)
	if err != nil {
		return core.RecognitionFailed{Err: fmt.Errorf("stt: record: %w", err)}
	}
	if chunk.Format == core.PCM {
		// Some browsers record into a WAV container.
		if chunk.Data, err = audio.StripWAVHeader(chunk.Data); err != nil {
			return core.RecognitionFailed{Err: fmt.Errorf("stt: %w", err)}
		}
	}
	if chunk.Empty() {
		return core.NoMatch{Reason: "no audio captured"}
	}

	converted, err := audio.ConvertAudioChunk(chunk, h.config.RequiredAudioFormat, h.config.RequiredChannels, h.config.RequiredSampleRate)
	if err != nil {
		return core.RecognitionFailed{Err: fmt.Errorf("stt: convert audio: %w", err)}
	}

	seconds := converted.GetDurationInSeconds()
	if h.config.MinUtteranceMs > 0 && seconds*1000 < float64(h.config.MinUtteranceMs) {
		return core.NoMatch{Reason: fmt.Sprintf("utterance too short (%.0f ms)", seconds*1000)}
	}
	if h.config.SilenceThreshold > 0 && converted.Format == core.PCM && rms(converted.Data) < h.config.SilenceThreshold {
		return core.NoMatch{Reason: "silence"}
	}

	h.logger.Debug("recognizing utterance", "seconds", seconds, "provider", core.ServiceName(h.service))
	return h.service.Recognize(ctx, converted)
}

// rms returns the normalized root mean square of 16-bit PCM.
func rms(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}
