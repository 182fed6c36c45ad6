package elevenlabs

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"senaibot/core"
)

type streamRequest struct {
	path, model, format, key string
	texts                    []string
}

func newStreamServer(t *testing.T, replies ...string) (*ElevenLabsTTS, chan streamRequest) {
	t.Helper()
	requests := make(chan streamRequest, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := streamRequest{
			path:   r.URL.Path,
			model:  r.URL.Query().Get("model_id"),
			format: r.URL.Query().Get("output_format"),
			key:    r.Header.Get("xi-api-key"),
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg struct {
				Text string `json:"text"`
			}
			_ = sonic.Unmarshal(data, &msg)
			got.texts = append(got.texts, msg.Text)
			if msg.Text == "" {
				break
			}
		}
		requests <- got
		for _, reply := range replies {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(reply))
		}
	}))
	t.Cleanup(srv.Close)

	svc := NewElevenLabsTTS(ElevenLabsTTSConfig{APIKey: "xi-key", BaseURL: "ws" + srv.URL[len("http"):] + "/v1/text-to-speech"}, core.NewNopLogger())
	require.NoError(t, svc.Init(context.Background()))
	return svc, requests
}

func audioMessage(data []byte, final bool) string {
	msg, _ := sonic.MarshalString(map[string]interface{}{"audio": base64.StdEncoding.EncodeToString(data), "isFinal": final})
	return msg
}

func TestSynthesizeCollectsStream(t *testing.T) {
	svc, requests := newStreamServer(t,
		audioMessage(make([]byte, 2400), false),
		audioMessage(make([]byte, 2400), false),
		`{"audio":null,"isFinal":true}`,
	)

	chunk, err := svc.Synthesize(context.Background(), "Bom dia!")
	require.NoError(t, err)

	assert.Len(t, chunk.Data, 4800)
	assert.Equal(t, OutputSampleRate, chunk.SampleRate)
	assert.Equal(t, core.PCM, chunk.Format)
	assert.InDelta(t, 0.1, chunk.GetDurationInSeconds(), 1e-9)

	got := <-requests
	assert.Equal(t, "/v1/text-to-speech/21m00Tcm4TlvDq8ikWAM/stream-input", got.path)
	assert.Equal(t, "eleven_turbo_v2_5", got.model)
	assert.Equal(t, "pcm_24000", got.format)
	assert.Equal(t, "xi-key", got.key)
	assert.Equal(t, []string{" ", "Bom dia! ", ""}, got.texts)
}

func TestSynthesizeProviderError(t *testing.T) {
	svc, _ := newStreamServer(t, `{"error":"quota_exceeded","message":"character limit reached","code":1008}`)

	_, err := svc.Synthesize(context.Background(), "Olá")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "character limit reached")
}

func TestSynthesizeRequiresInit(t *testing.T) {
	svc := NewElevenLabsTTS(ElevenLabsTTSConfig{APIKey: "k"}, core.NewNopLogger())
	_, err := svc.Synthesize(context.Background(), "Olá")
	assert.ErrorContains(t, err, "not initialized")

	assert.Error(t, NewElevenLabsTTS(ElevenLabsTTSConfig{}, nil).Init(context.Background()))
}
