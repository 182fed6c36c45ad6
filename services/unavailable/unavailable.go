// Package unavailable provides stand-in collaborators used when a provider
// could not be configured. They keep a session usable without credentials.
package unavailable

import (
	"context"
	"errors"
	"fmt"

	"senaibot/core"
)

// DefaultLLMReply is returned for every completion when no model is configured.
const DefaultLLMReply = "Erro de conexão com a IA."

// ErrUnavailable is the cause wrapped by every failure from this package.
var ErrUnavailable = errors.New("service unavailable")

// LLM answers every completion with a fixed reply.
type LLM struct {
	Reply  string
	Reason error
}

func NewLLM(reason error) *LLM {
	return &LLM{Reply: DefaultLLMReply, Reason: reason}
}

func (s *LLM) Name() string               { return "unavailable-llm" }
func (s *LLM) Init(context.Context) error { return nil }
func (s *LLM) Cleanup() error             { return nil }

func (s *LLM) Complete(context.Context, []core.Turn, core.CompletionOptions) (string, error) {
	return s.Reply, nil
}

// STT fails every recognition.
type STT struct {
	Reason error
}

func NewSTT(reason error) *STT {
	return &STT{Reason: reason}
}

func (s *STT) Name() string               { return "unavailable-stt" }
func (s *STT) Init(context.Context) error { return nil }
func (s *STT) Cleanup() error             { return nil }

func (s *STT) Recognize(context.Context, core.AudioChunk) core.Recognition {
	return core.RecognitionFailed{Err: wrap("stt", s.Reason)}
}

// TTS fails every synthesis.
type TTS struct {
	Reason error
}

func NewTTS(reason error) *TTS {
	return &TTS{Reason: reason}
}

func (s *TTS) Name() string               { return "unavailable-tts" }
func (s *TTS) Init(context.Context) error { return nil }
func (s *TTS) Cleanup() error             { return nil }

func (s *TTS) Synthesize(context.Context, string) (core.AudioChunk, error) {
	return core.AudioChunk{}, wrap("tts", s.Reason)
}

func wrap(kind string, reason error) error {
	if reason == nil {
		return fmt.Errorf("%s: %w", kind, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w: %v", kind, ErrUnavailable, reason)
}
