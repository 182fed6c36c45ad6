package server

import (
	"context"
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"senaibot/core"
	"senaibot/handlers/voice"
	"senaibot/protocol"
	"senaibot/services/unavailable"
	"senaibot/session"
	wstransport "senaibot/transports/websocket"
)

type echoLLM struct{}

func (echoLLM) Init(context.Context) error { return nil }
func (echoLLM) Cleanup() error             { return nil }

func (echoLLM) Complete(_ context.Context, history []core.Turn, _ core.CompletionOptions) (string, error) {
	return "Você disse: " + history[len(history)-1].Content, nil
}

type fixedSTT struct{ text string }

func (fixedSTT) Init(context.Context) error { return nil }
func (fixedSTT) Cleanup() error             { return nil }

func (s fixedSTT) Recognize(context.Context, core.AudioChunk) core.Recognition {
	return core.Recognized{Text: s.text}
}

func startServer(t *testing.T, config Config) (*Server, string) {
	t.Helper()
	factory := func(ctx context.Context, id string, mic core.Microphone, speaker core.Speaker, logger *core.Logger) (*session.Session, error) {
		return session.New(ctx, id, session.Deps{
			LLM:        echoLLM{},
			STT:        fixedSTT{text: "que horas são"},
			TTS:        unavailable.NewTTS(nil),
			Microphone: mic,
			Speaker:    speaker,
		}, session.DefaultConfig(), logger)
	}
	s := New(config, wstransport.DefaultConfig(), factory, core.NewNopLogger())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv.URL
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, baseURL string) *client {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(baseURL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) send(msgType protocol.MessageType, payload interface{}) {
	data, err := protocol.Marshal(msgType, payload)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, data))
}

// expect reads until a message of the given type arrives.
func (c *client) expect(msgType protocol.MessageType) protocol.Envelope {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		kind, data, err := c.conn.ReadMessage()
		require.NoError(c.t, err)
		if kind != websocket.TextMessage {
			continue
		}
		env, err := protocol.Unmarshal(data)
		require.NoError(c.t, err)
		if env.Type == msgType {
			return env
		}
	}
}

func payload[T any](t *testing.T, env protocol.Envelope) T {
	t.Helper()
	v, err := protocol.UnmarshalPayload[T](env.Payload)
	require.NoError(t, err)
	return v
}

func speech() []byte {
	pcm := make([]byte, 16000)
	for i := 0; i < len(pcm)/2; i++ {
		v := int16(7000)
		if (i/16)%2 == 0 {
			v = -7000
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}

func TestTextExchange(t *testing.T) {
	_, url := startServer(t, Config{})
	c := dial(t, url)

	ready := payload[protocol.ReadyPayload](t, c.expect(protocol.MsgReady))
	assert.NotEmpty(t, ready.SessionID)
	assert.Empty(t, ready.Turns)

	c.send(protocol.MsgText, protocol.TextPayload{Text: "Olá"})
	reply := payload[protocol.TextPayload](t, c.expect(protocol.MsgReply))
	assert.Equal(t, "Você disse: Olá", reply.Text)

	c.send(protocol.MsgHistory, nil)
	history := payload[protocol.HistoryPayload](t, c.expect(protocol.MsgHistory))
	assert.Equal(t, []core.Turn{
		{Role: core.RoleUser, Content: "Olá"},
		{Role: core.RoleAssistant, Content: "Você disse: Olá"},
	}, history.Turns)

	c.send(protocol.MsgReset, nil)
	history = payload[protocol.HistoryPayload](t, c.expect(protocol.MsgHistory))
	assert.Empty(t, history.Turns)
}

func TestVoiceExchange(t *testing.T) {
	_, url := startServer(t, Config{})
	c := dial(t, url)
	c.expect(protocol.MsgReady)

	c.send(protocol.MsgVoice, nil)
	listening := payload[protocol.MessagePayload](t, c.expect(protocol.MsgListening))
	assert.Equal(t, voice.DefaultListeningMessage, listening.Message)

	c.send(protocol.MsgAudioStart, protocol.AudioStartPayload{SampleRate: 16000, Channels: 1, Encoding: "pcm"})
	require.NoError(t, c.conn.WriteMessage(websocket.BinaryMessage, speech()))
	c.send(protocol.MsgAudioEnd, nil)

	transcript := payload[protocol.TextPayload](t, c.expect(protocol.MsgTranscript))
	assert.Equal(t, "que horas são", transcript.Text)
	reply := payload[protocol.TextPayload](t, c.expect(protocol.MsgReply))
	assert.Equal(t, "Você disse: que horas são", reply.Text)
}

func TestSilentVoiceIsNotice(t *testing.T) {
	_, url := startServer(t, Config{})
	c := dial(t, url)
	c.expect(protocol.MsgReady)

	c.send(protocol.MsgVoice, nil)
	c.expect(protocol.MsgListening)
	c.send(protocol.MsgAudioStart, protocol.AudioStartPayload{SampleRate: 16000, Channels: 1, Encoding: "pcm"})
	require.NoError(t, c.conn.WriteMessage(websocket.BinaryMessage, make([]byte, 16000)))
	c.send(protocol.MsgAudioEnd, nil)

	notice := payload[protocol.MessagePayload](t, c.expect(protocol.MsgNotice))
	assert.Equal(t, voice.DefaultNotUnderstoodMessage, notice.Message)
}

func TestUnknownAndBlankMessagesAreErrors(t *testing.T) {
	_, url := startServer(t, Config{})
	c := dial(t, url)
	c.expect(protocol.MsgReady)

	c.send("dance", nil)
	assert.Contains(t, payload[protocol.MessagePayload](t, c.expect(protocol.MsgError)).Message, "dance")

	c.send(protocol.MsgText, protocol.TextPayload{Text: "   "})
	assert.Equal(t, "empty message", payload[protocol.MessagePayload](t, c.expect(protocol.MsgError)).Message)
}

func TestSessionLogFile(t *testing.T) {
	dir := t.TempDir()
	_, url := startServer(t, Config{LogDir: dir})
	c := dial(t, url)
	ready := payload[protocol.ReadyPayload](t, c.expect(protocol.MsgReady))

	require.NoError(t, c.conn.Close())

	logPath := filepath.Join(dir, ready.SessionID+".jsonl")
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, ready.SessionID+".active"))
		return os.IsNotExist(err)
	}, 3*time.Second, 20*time.Millisecond)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"session_id":"`+ready.SessionID+`"`)
	assert.Contains(t, string(data), "session started")
}

func TestLogForwarding(t *testing.T) {
	_, url := startServer(t, Config{AllowLogForwarding: true})
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http")+"/ws?logs=1", nil)
	require.NoError(t, err)
	defer conn.Close()
	c := &client{t: t, conn: conn}

	entry := payload[protocol.LogPayload](t, c.expect(protocol.MsgLog))
	assert.NotEmpty(t, entry.SessionID)
	assert.NotEmpty(t, entry.Entry.Message)
}

func TestHealth(t *testing.T) {
	_, url := startServer(t, Config{})

	resp, err := http.Get(url + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","sessions":0}`, string(body))
}

func TestOriginCheck(t *testing.T) {
	s := New(Config{AllowedOrigins: []string{"https://senai.example"}}, wstransport.DefaultConfig(), nil, core.NewNopLogger())

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "https://senai.example")
	assert.True(t, s.checkOrigin(r))
	r.Header.Set("Origin", "https://evil.example")
	assert.False(t, s.checkOrigin(r))
}
