package core

import (
	"context"
	"errors"
)

var (
	// ErrMicrophoneBusy is returned by Acquire while another capture is open.
	ErrMicrophoneBusy = errors.New("microphone already in use")
	// ErrDeviceClosed is returned once the underlying device went away.
	ErrDeviceClosed = errors.New("audio device closed")
)

// Microphone hands out exclusive capture sessions.
type Microphone interface {
	Acquire(ctx context.Context) (Capture, error)
}

// Capture is one exclusive recording session. Release must be called exactly
// once on every path; it is safe to call after a failed Record.
type Capture interface {
	// Record blocks until the utterance is complete and returns it.
	Record(ctx context.Context) (AudioChunk, error)
	Release() error
}

// Speaker plays synthesized audio on the session's output device.
type Speaker interface {
	Play(ctx context.Context, chunk AudioChunk) error
}
