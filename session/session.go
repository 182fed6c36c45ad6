// Package session assembles the per-connection conversation: one store, one
// turn controller, one voice bridge and one speech dispatcher.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"senaibot/conversation"
	"senaibot/core"
	"senaibot/handlers/stt"
	"senaibot/handlers/tts"
	"senaibot/handlers/turn"
	"senaibot/handlers/voice"
)

// ErrEmptyInput is returned by SendText for blank text. Nothing is appended.
var ErrEmptyInput = errors.New("session: empty input")

// Config groups the handler configs of one session.
type Config struct {
	SystemPrompt string            `json:"system_prompt"`
	Turn         turn.TurnConfig   `json:"turn"`
	STT          stt.STTConfig     `json:"stt"`
	TTS          tts.TTSConfig     `json:"tts"`
	Voice        voice.VoiceConfig `json:"voice"`
}

// DefaultConfig returns a Config with the default handler configs.
func DefaultConfig() Config {
	return Config{
		SystemPrompt: conversation.DefaultSystemPrompt,
		Turn:         turn.DefaultConfig(),
		STT:          stt.DefaultConfig(),
		TTS:          tts.DefaultConfig(),
		Voice:        voice.DefaultConfig(),
	}
}

// Deps are the collaborators a session is built from. Services are shared
// between sessions; Microphone and Speaker belong to this session only.
type Deps struct {
	LLM        turn.LLMService
	STT        stt.STTService
	TTS        tts.TTSService
	Microphone core.Microphone
	Speaker    core.Speaker
}

func (d Deps) validate() error {
	switch {
	case d.LLM == nil:
		return errors.New("session: LLM service is required")
	case d.STT == nil:
		return errors.New("session: STT service is required")
	case d.TTS == nil:
		return errors.New("session: TTS service is required")
	case d.Microphone == nil:
		return errors.New("session: microphone is required")
	case d.Speaker == nil:
		return errors.New("session: speaker is required")
	}
	return nil
}

type Session struct {
	ID string

	store      *conversation.Store
	dispatcher *tts.Dispatcher
	controller *turn.TurnController
	bridge     *voice.VoiceBridge
	logger     *core.Logger

	// interaction serializes SendText and SendVoice.
	interaction sync.Mutex
	closeOnce   sync.Once
}

// New builds a session. ctx bounds background speech; cancel it or call
// Close when the session ends.
func New(ctx context.Context, id string, deps Deps, config Config, logger *core.Logger) (*Session, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	logger = logger.With(map[string]interface{}{"session_id": id})

	store := conversation.NewStore(config.SystemPrompt)
	dispatcher := tts.NewDispatcher(ctx, deps.TTS, deps.Speaker, config.TTS, logger)
	controller := turn.NewTurnController(store, deps.LLM, dispatcher, config.Turn, logger)
	recognizer := stt.NewSTTHandler(deps.STT, config.STT, logger)
	bridge := voice.NewVoiceBridge(deps.Microphone, recognizer, controller, config.Voice, logger)

	return &Session{
		ID:         id,
		store:      store,
		dispatcher: dispatcher,
		controller: controller,
		bridge:     bridge,
		logger:     logger.With(map[string]interface{}{"component": "session"}),
	}, nil
}

// OnListening sets the callback fired while the microphone is open.
func (s *Session) OnListening(fn func(message string)) {
	s.bridge.OnListening = fn
}

// SendText runs one typed exchange and returns the assistant reply.
func (s *Session) SendText(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyInput
	}
	s.interaction.Lock()
	defer s.interaction.Unlock()
	return s.controller.HandleTextInput(ctx, text), nil
}

// SendVoice runs one spoken exchange. recognized is empty when nothing was
// understood; reply is then the not-understood message.
func (s *Session) SendVoice(ctx context.Context) (recognized string, reply string) {
	s.interaction.Lock()
	defer s.interaction.Unlock()
	return s.bridge.HandleVoiceInput(ctx)
}

// ResetConversation clears the history immediately, even while an exchange
// is in flight. That exchange's reply is discarded when it arrives.
func (s *Session) ResetConversation() {
	s.controller.HandleReset()
	s.logger.Info("conversation reset")
}

// VisibleTurns returns the rendered conversation, system turn excluded.
func (s *Session) VisibleTurns() []core.Turn {
	return s.store.VisibleTurns()
}

// SpeechErrors exposes the speech dispatcher's error channel.
func (s *Session) SpeechErrors() <-chan error {
	return s.dispatcher.Errors()
}

// Close lets queued speech finish and stops the dispatcher.
func (s *Session) Close() {
	s.closeOnce.Do(s.dispatcher.Close)
}

// Abort drops queued speech and stops the dispatcher.
func (s *Session) Abort() {
	s.closeOnce.Do(s.dispatcher.Abort)
}
