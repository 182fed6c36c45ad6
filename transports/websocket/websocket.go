package websocket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"senaibot/core"
	"senaibot/protocol"
	"senaibot/utils/audio"

	"github.com/gorilla/websocket"
)

// ErrCaptureTimeout is returned by Record when the browser never finished the utterance.
var ErrCaptureTimeout = errors.New("capture timed out waiting for audio_end")

// Config controls how the browser connection is used as microphone and speaker.
type Config struct {
	MaxUtteranceSeconds  int    `json:"max_utterance_seconds"` // Audio beyond this is dropped and the capture ends.
	ListenTimeoutSeconds int    `json:"listen_timeout_seconds"`
	OutputEncoding       string `json:"output_encoding"`    // "pcm" or "ulaw".
	OutputSampleRate     int    `json:"output_sample_rate"` // Zero keeps the synthesizer's rate.
	WriteTimeoutSeconds  int    `json:"write_timeout_seconds"`
	ReadLimitBytes       int64  `json:"read_limit_bytes"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxUtteranceSeconds:  30,
		ListenTimeoutSeconds: 60,
		OutputEncoding:       "pcm",
		WriteTimeoutSeconds:  10,
		ReadLimitBytes:       1 << 20,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxUtteranceSeconds <= 0 {
		c.MaxUtteranceSeconds = d.MaxUtteranceSeconds
	}
	if c.ListenTimeoutSeconds <= 0 {
		c.ListenTimeoutSeconds = d.ListenTimeoutSeconds
	}
	if c.OutputEncoding == "" {
		c.OutputEncoding = d.OutputEncoding
	}
	if c.WriteTimeoutSeconds <= 0 {
		c.WriteTimeoutSeconds = d.WriteTimeoutSeconds
	}
	if c.ReadLimitBytes <= 0 {
		c.ReadLimitBytes = d.ReadLimitBytes
	}
	return c
}

// Conn wraps one browser WebSocket. It implements core.Microphone and
// core.Speaker and sends protocol messages. Writes are serialized.
type Conn struct {
	conn   *websocket.Conn
	config Config
	output core.AudioEncodingFormat
	logger *core.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	capture *capture
	// pending holds an utterance the browser started before any capture was
	// open; the next Acquire adopts it.
	pending   *capture
	closed    chan struct{}
	closeOnce sync.Once
}

// NewConn wraps an upgraded connection.
func NewConn(conn *websocket.Conn, config Config, logger *core.Logger) (*Conn, error) {
	if logger == nil {
		logger = core.GetLogger()
	}
	config = config.withDefaults()
	output, err := core.ParseAudioEncodingFormat(config.OutputEncoding)
	if err != nil {
		return nil, fmt.Errorf("websocket: output encoding: %w", err)
	}
	if output == core.ALAW {
		return nil, errors.New("websocket: alaw output is not supported by the browser client")
	}
	conn.SetReadLimit(config.ReadLimitBytes)
	return &Conn{
		conn:   conn,
		config: config,
		output: output,
		logger: logger.With(map[string]interface{}{"component": "websocket"}),
		closed: make(chan struct{}),
	}, nil
}

// Send writes one enveloped text message.
func (c *Conn) Send(msgType protocol.MessageType, payload interface{}) error {
	data, err := protocol.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, data)
}

func (c *Conn) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.writeLocked(messageType, data)
}

func (c *Conn) writeLocked(messageType int, data []byte) error {
	select {
	case <-c.closed:
		return core.ErrDeviceClosed
	default:
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(time.Duration(c.config.WriteTimeoutSeconds) * time.Second))
	return c.conn.WriteMessage(messageType, data)
}

// Play sends the chunk as an audio header followed by one binary frame. It
// returns once the frame is written, not when the browser finished playing.
func (c *Conn) Play(ctx context.Context, chunk core.AudioChunk) error {
	if chunk.Empty() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	rate := c.config.OutputSampleRate
	if rate == 0 {
		rate = chunk.SampleRate
	}
	out, err := audio.ConvertAudioChunk(chunk, c.output, 1, rate)
	if err != nil {
		return fmt.Errorf("websocket: play: %w", err)
	}
	header, err := protocol.Marshal(protocol.MsgAudio, protocol.AudioPayload{
		SampleRate: out.SampleRate,
		Channels:   out.Channels,
		Encoding:   out.Format.String(),
		Size:       len(out.Data),
	})
	if err != nil {
		return err
	}

	// Header and frame must not interleave with other writes.
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.writeLocked(websocket.TextMessage, header); err != nil {
		return fmt.Errorf("websocket: play: %w", err)
	}
	if err := c.writeLocked(websocket.BinaryMessage, out.Data); err != nil {
		return fmt.Errorf("websocket: play: %w", err)
	}
	return nil
}

// Acquire opens a capture session. Only one may be open at a time.
func (c *Conn) Acquire(ctx context.Context) (core.Capture, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.closed:
		return nil, core.ErrDeviceClosed
	default:
	}
	if c.capture != nil {
		return nil, core.ErrMicrophoneBusy
	}
	listen := time.Duration(c.config.ListenTimeoutSeconds) * time.Second
	if c.pending != nil && time.Since(c.pending.created) <= listen {
		c.capture = c.pending
	} else {
		c.capture = newCapture(c)
	}
	c.pending = nil
	return c.capture, nil
}

// audioTarget returns the capture audio framing goes to: the open one, else
// an early utterance waiting for Acquire.
func (c *Conn) audioTarget() *capture {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture != nil {
		return c.capture
	}
	return c.pending
}

func (c *Conn) release(cp *capture) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture == cp {
		c.capture = nil
	}
}

// ReadLoop reads until the connection fails. Audio framing messages are
// routed to the open capture; every other envelope goes to handle. It must
// be called from a single goroutine.
func (c *Conn) ReadLoop(handle func(protocol.Envelope)) error {
	defer c.markClosed()
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}

		if messageType == websocket.BinaryMessage {
			if cp := c.audioTarget(); cp != nil {
				cp.appendFrame(data)
			} else {
				c.logger.Debug("dropping audio frame without open capture", "bytes", len(data))
			}
			continue
		}

		env, err := protocol.Unmarshal(data)
		if err != nil {
			c.logger.Warn("invalid message from browser", "error", err)
			_ = c.Send(protocol.MsgError, protocol.MessagePayload{Message: err.Error()})
			continue
		}

		switch env.Type {
		case protocol.MsgAudioStart:
			start, err := protocol.UnmarshalPayload[protocol.AudioStartPayload](env.Payload)
			if err == nil {
				err = c.startAudio(start)
			}
			if err != nil {
				c.logger.Warn("audio_start rejected", "error", err)
				_ = c.Send(protocol.MsgError, protocol.MessagePayload{Message: err.Error()})
			}
		case protocol.MsgAudioEnd:
			if cp := c.audioTarget(); cp != nil {
				cp.finish()
			}
		default:
			handle(env)
		}
	}
}

func (c *Conn) startAudio(start protocol.AudioStartPayload) error {
	format, err := core.ParseAudioEncodingFormat(start.Encoding)
	if err != nil {
		return err
	}
	if start.SampleRate <= 0 || start.Channels <= 0 || start.Channels > 2 {
		return fmt.Errorf("invalid audio format: %d Hz, %d channels", start.SampleRate, start.Channels)
	}
	cp := c.captureForStart()
	cp.start(core.AudioChunk{SampleRate: start.SampleRate, Channels: start.Channels, Format: format}, c.config.MaxUtteranceSeconds)
	return nil
}

// captureForStart returns the open capture, or a fresh pending one when the
// browser starts talking before the voice request has opened the microphone.
func (c *Conn) captureForStart() *capture {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture != nil {
		return c.capture
	}
	c.pending = newCapture(c)
	return c.pending
}

// Closed is closed once the read loop has ended or Close was called.
func (c *Conn) Closed() <-chan struct{} {
	return c.closed
}

func (c *Conn) markClosed() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// Close ends the connection with a normal closure frame.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	c.markClosed()
	return c.conn.Close()
}

// capture buffers one utterance between audio_start and audio_end.
type capture struct {
	conn    *Conn
	created time.Time

	mu       sync.Mutex
	format   core.AudioChunk
	started  bool
	maxBytes int
	buf      bytes.Buffer

	done     chan struct{}
	doneOnce sync.Once
	released sync.Once
}

func newCapture(conn *Conn) *capture {
	return &capture{conn: conn, created: time.Now(), done: make(chan struct{})}
}

func (cp *capture) start(format core.AudioChunk, maxSeconds int) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	bytesPerSample := 2
	if format.Format != core.PCM {
		bytesPerSample = 1
	}
	cp.format = format
	cp.started = true
	cp.maxBytes = maxSeconds * format.SampleRate * format.Channels * bytesPerSample
	cp.buf.Reset()
}

func (cp *capture) appendFrame(data []byte) {
	cp.mu.Lock()
	if !cp.started {
		cp.mu.Unlock()
		return
	}
	room := cp.maxBytes - cp.buf.Len()
	full := len(data) >= room
	if full {
		data = data[:room]
	}
	cp.buf.Write(data)
	cp.mu.Unlock()
	if full {
		cp.finish()
	}
}

func (cp *capture) finish() {
	cp.doneOnce.Do(func() { close(cp.done) })
}

// Record waits for audio_end, the utterance limit, the listen timeout or
// the connection to close.
func (cp *capture) Record(ctx context.Context) (core.AudioChunk, error) {
	timer := time.NewTimer(time.Duration(cp.conn.config.ListenTimeoutSeconds) * time.Second)
	defer timer.Stop()

	select {
	case <-cp.done:
	case <-ctx.Done():
		return core.AudioChunk{}, ctx.Err()
	case <-cp.conn.closed:
		return core.AudioChunk{}, core.ErrDeviceClosed
	case <-timer.C:
		return core.AudioChunk{}, ErrCaptureTimeout
	}

	cp.mu.Lock()
	defer cp.mu.Unlock()
	chunk := cp.format
	chunk.Data = append([]byte(nil), cp.buf.Bytes()...)
	return chunk, nil
}

func (cp *capture) Release() error {
	cp.released.Do(func() { cp.conn.release(cp) })
	return nil
}
