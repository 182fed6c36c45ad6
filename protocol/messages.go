// Package protocol defines the JSON envelopes exchanged with the browser.
//
// A spoken turn is `voice`, then `audio_start`, binary frames and `audio_end`.
// The browser may start streaming right after `voice`; audio that arrives
// before the agent answers `listening` is held for that capture.
package protocol

import (
	"encoding/json"

	"senaibot/core"
)

// MessageType enumerates all browser session message types.
type MessageType string

const (
	// Browser -> Agent
	MsgText       MessageType = "text"
	MsgVoice      MessageType = "voice"
	MsgAudioStart MessageType = "audio_start"
	MsgAudioEnd   MessageType = "audio_end"
	MsgReset      MessageType = "reset"
	MsgHistory    MessageType = "history"

	// Agent -> Browser
	MsgReady      MessageType = "ready"
	MsgListening  MessageType = "listening"
	MsgTranscript MessageType = "transcript"
	MsgReply      MessageType = "reply"
	MsgNotice     MessageType = "notice"
	MsgAudio      MessageType = "audio"
	MsgLog        MessageType = "log"
	MsgError      MessageType = "error"
)

// Envelope is the outer JSON wrapper for all text WebSocket messages.
// Binary frames carry raw audio and have no envelope.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- Browser -> Agent payloads ---

// TextPayload submits one typed message.
type TextPayload struct {
	Text string `json:"text"`
}

// AudioStartPayload announces the format of the binary frames that follow,
// up to the matching audio_end.
type AudioStartPayload struct {
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Encoding   string `json:"encoding"` // "pcm", "ulaw" or "alaw".
}

// --- Agent -> Browser payloads ---

// ReadyPayload is sent once after the session is created.
type ReadyPayload struct {
	SessionID string      `json:"session_id"`
	Turns     []core.Turn `json:"turns"`
}

// MessagePayload carries a user-facing status line (listening, notice, error).
type MessagePayload struct {
	Message string `json:"message"`
}

// HistoryPayload carries the visible conversation, system turn excluded.
type HistoryPayload struct {
	Turns []core.Turn `json:"turns"`
}

// AudioPayload precedes exactly one binary frame of Size bytes.
type AudioPayload struct {
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Encoding   string `json:"encoding"`
	Size       int    `json:"size"`
}

// LogPayload forwards one session log entry to a browser that asked for logs.
type LogPayload struct {
	SessionID string        `json:"session_id"`
	Entry     core.LogEntry `json:"entry"`
}
