package tts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"senaibot/core"
)

// TTSService synthesizes one utterance into playable audio.
type TTSService interface {
	core.IService
	Synthesize(ctx context.Context, text string) (core.AudioChunk, error)
}

// ErrQueueFull is reported when an utterance is dropped because the speaker is
// still busy with earlier ones.
var ErrQueueFull = errors.New("tts: speech queue full")

// ErrDispatcherClosed is reported for utterances dispatched after Close.
var ErrDispatcherClosed = errors.New("tts: dispatcher closed")

// SpeechError describes a failed utterance. It never reaches the conversation.
type SpeechError struct {
	Text string
	Err  error
}

func (e *SpeechError) Error() string {
	return fmt.Sprintf("tts: speak %q: %v", truncate(e.Text, 40), e.Err)
}

func (e *SpeechError) Unwrap() error {
	return e.Err
}

// Dispatcher speaks assistant replies in the background. Utterances are played
// one at a time in dispatch order because the output device is exclusive.
type Dispatcher struct {
	service TTSService
	speaker core.Speaker
	config  TTSConfig
	logger  *core.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	queue  chan string
	errs   chan error
	wg     sync.WaitGroup
}

// NewDispatcher starts the speech worker. ctx bounds every utterance; cancel
// it to abort in-flight synthesis when the session goes away.
func NewDispatcher(ctx context.Context, service TTSService, speaker core.Speaker, config TTSConfig, logger *core.Logger) *Dispatcher {
	if logger == nil {
		logger = core.GetLogger()
	}
	config = config.withDefaults()
	d := &Dispatcher{
		service: service,
		speaker: speaker,
		config:  config,
		logger:  logger.With(map[string]interface{}{"component": "tts"}),
		queue:   make(chan string, config.QueueSize),
		errs:    make(chan error, config.QueueSize),
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go d.speakLoop()
	return d
}

// Dispatch queues text for speech and returns immediately. It reports whether
// the utterance was accepted.
func (d *Dispatcher) Dispatch(text string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.report(&SpeechError{Text: text, Err: ErrDispatcherClosed})
		return false
	}
	select {
	case d.queue <- text:
		return true
	default:
		d.report(&SpeechError{Text: text, Err: ErrQueueFull})
		return false
	}
}

// Errors exposes speech failures. The channel is buffered and lossy: when no
// one drains it, new failures are only logged.
func (d *Dispatcher) Errors() <-chan error {
	return d.errs
}

// Close stops accepting utterances, waits for the queued ones and stops the worker.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.cancel()
}

// Abort drops queued speech and cancels the utterance being played.
func (d *Dispatcher) Abort() {
	d.cancel()
	d.Close()
}

func (d *Dispatcher) speakLoop() {
	defer d.wg.Done()
	for text := range d.queue {
		if d.ctx.Err() != nil {
			// aborted: drain silently
			continue
		}
		if err := d.speak(text); err != nil && d.ctx.Err() == nil {
			d.report(&SpeechError{Text: text, Err: err})
		}
	}
}

func (d *Dispatcher) speak(text string) error {
	if d.config.Normalize {
		text = normalizeTextForTTS(text)
	}
	if text == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(d.ctx, d.config.speakTimeout())
	defer cancel()

	chunk, err := d.service.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	if chunk.Empty() {
		return errors.New("synthesize: empty audio")
	}
	if err := d.speaker.Play(ctx, chunk); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	d.logger.Debug("utterance played", "chars", len(text), "seconds", chunk.GetDurationInSeconds())
	return nil
}

func (d *Dispatcher) report(err error) {
	d.logger.Warn("speech synthesis failed", "error", err)
	select {
	case d.errs <- err:
	default:
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
