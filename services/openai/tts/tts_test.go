package tts

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"senaibot/core"
)

func TestSynthesizeReturnsRawPCM(t *testing.T) {
	var path string
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "audio/pcm")
		_, _ = w.Write(make([]byte, 4800))
	}))
	defer srv.Close()

	svc := NewOpenAITTS(OpenAITTSConfig{APIKey: "sk-test", BaseURL: srv.URL}, core.NewNopLogger())
	require.NoError(t, svc.Init(context.Background()))

	chunk, err := svc.Synthesize(context.Background(), "Olá, tudo bem?")
	require.NoError(t, err)

	assert.Equal(t, "/audio/speech", path)
	assert.Equal(t, "pcm", body["response_format"])
	assert.Equal(t, "nova", body["voice"])
	assert.Equal(t, "Olá, tudo bem?", body["input"])
	assert.Equal(t, OutputSampleRate, chunk.SampleRate)
	assert.Equal(t, core.PCM, chunk.Format)
	assert.InDelta(t, 0.1, chunk.GetDurationInSeconds(), 0.001)
}

func TestSynthesizeProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error": {"message": "invalid key"}}`)
	}))
	defer srv.Close()

	svc := NewOpenAITTS(OpenAITTSConfig{APIKey: "bad", BaseURL: srv.URL}, core.NewNopLogger())
	require.NoError(t, svc.Init(context.Background()))

	_, err := svc.Synthesize(context.Background(), "oi")
	assert.ErrorContains(t, err, "invalid key")
}

func TestInitRequiresKey(t *testing.T) {
	assert.Error(t, NewOpenAITTS(OpenAITTSConfig{}, nil).Init(context.Background()))
}
