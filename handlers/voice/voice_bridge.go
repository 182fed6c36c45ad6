// Package voice turns one spoken utterance into a conversation exchange.
package voice

import (
	"context"
	"strings"

	"senaibot/core"
)

// Recognizer runs speech recognition over an open capture session.
type Recognizer interface {
	RecognizeOnce(ctx context.Context, capture core.Capture) core.Recognition
}

// TextHandler is the turn controller as seen from the bridge.
type TextHandler interface {
	HandleTextInput(ctx context.Context, text string) string
}

// VoiceBridge composes capture, recognition and the turn controller.
type VoiceBridge struct {
	microphone core.Microphone
	recognizer Recognizer
	turns      TextHandler
	config     VoiceConfig
	logger     *core.Logger

	// OnListening, when set, is called with the listening message right after
	// the microphone is acquired.
	OnListening func(message string)
}

func NewVoiceBridge(microphone core.Microphone, recognizer Recognizer, turns TextHandler, config VoiceConfig, logger *core.Logger) *VoiceBridge {
	if logger == nil {
		logger = core.GetLogger()
	}
	defaults := DefaultConfig()
	if config.NotUnderstoodMessage == "" {
		config.NotUnderstoodMessage = defaults.NotUnderstoodMessage
	}
	if config.ListeningMessage == "" {
		config.ListeningMessage = defaults.ListeningMessage
	}
	return &VoiceBridge{
		microphone: microphone,
		recognizer: recognizer,
		turns:      turns,
		config:     config,
		logger:     logger.With(map[string]interface{}{"component": "voice"}),
	}
}

// HandleVoiceInput listens for one utterance and, if it was understood, runs
// it through the turn controller. It returns the recognized text and the
// assistant reply, or an empty text and the not-understood message. The
// microphone is always released before returning.
func (b *VoiceBridge) HandleVoiceInput(ctx context.Context) (recognized string, reply string) {
	text, ok := b.listen(ctx)
	if !ok {
		return "", b.config.NotUnderstoodMessage
	}
	return text, b.turns.HandleTextInput(ctx, text)
}

// listen holds the microphone only for capture and recognition.
func (b *VoiceBridge) listen(ctx context.Context) (string, bool) {
	capture, err := b.microphone.Acquire(ctx)
	if err != nil {
		b.logger.Error("could not open microphone", "error", err)
		return "", false
	}
	defer func() {
		if err := capture.Release(); err != nil {
			b.logger.Warn("microphone release failed", "error", err)
		}
	}()

	if b.OnListening != nil {
		b.OnListening(b.config.ListeningMessage)
	}

	switch r := b.recognizer.RecognizeOnce(ctx, capture).(type) {
	case core.Recognized:
		text := strings.TrimSpace(r.Text)
		if text == "" {
			b.logger.Info("speech not understood", "reason", "empty transcript")
			return "", false
		}
		b.logger.Info("speech recognized", "chars", len(text))
		return text, true
	case core.NoMatch:
		b.logger.Info("speech not understood", "reason", r.Reason)
		return "", false
	case core.RecognitionFailed:
		b.logger.Error("speech recognition failed", "error", r.Err)
		return "", false
	default:
		b.logger.Error("unexpected recognition result", "type", r)
		return "", false
	}
}
