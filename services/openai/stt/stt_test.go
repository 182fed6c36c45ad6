package stt

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"senaibot/core"
)

func newWhisperServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	got := &http.Request{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		*got = *r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func utterance() core.AudioChunk {
	return core.AudioChunk{Data: make([]byte, 3200), SampleRate: 16000, Channels: 1, Format: core.PCM}
}

func initWhisper(t *testing.T, baseURL string) *WhisperSTT {
	t.Helper()
	svc := NewWhisperSTT(WhisperConfig{APIKey: "sk-test", BaseURL: baseURL}, core.NewNopLogger())
	require.NoError(t, svc.Init(context.Background()))
	return svc
}

func TestRecognizeUploadsWav(t *testing.T) {
	srv, got := newWhisperServer(t, http.StatusOK, `{"text": " que horas são "}`)
	svc := initWhisper(t, srv.URL)

	res := svc.Recognize(context.Background(), utterance())

	assert.Equal(t, core.Recognized{Text: "que horas são"}, res)
	assert.Equal(t, "/audio/transcriptions", got.URL.Path)
	assert.Equal(t, "whisper-1", got.MultipartForm.Value["model"][0])
	assert.Equal(t, "pt", got.MultipartForm.Value["language"][0])

	files := got.MultipartForm.File["file"]
	require.Len(t, files, 1)
	assert.Equal(t, "speech.wav", files[0].Filename)
	assert.EqualValues(t, 44+3200, files[0].Size)
}

func TestRecognizeEmptyTranscriptIsNoMatch(t *testing.T) {
	srv, _ := newWhisperServer(t, http.StatusOK, `{"text": ""}`)
	svc := initWhisper(t, srv.URL)

	assert.IsType(t, core.NoMatch{}, svc.Recognize(context.Background(), utterance()))
}

func TestRecognizeProviderErrorIsFailure(t *testing.T) {
	srv, _ := newWhisperServer(t, http.StatusTooManyRequests, `{"error": {"message": "quota exceeded"}}`)
	svc := initWhisper(t, srv.URL)

	res := svc.Recognize(context.Background(), utterance())

	failed, ok := res.(core.RecognitionFailed)
	require.True(t, ok, "got %T", res)
	assert.Contains(t, failed.Error(), "quota exceeded")
}

func TestRecognizeRejectsNonPCM(t *testing.T) {
	svc := initWhisper(t, "http://127.0.0.1:0")
	chunk := utterance()
	chunk.Format = core.ULAW

	assert.IsType(t, core.RecognitionFailed{}, svc.Recognize(context.Background(), chunk))
}

func TestRecognizeBeforeInit(t *testing.T) {
	svc := NewWhisperSTT(WhisperConfig{APIKey: "k"}, nil)
	assert.IsType(t, core.RecognitionFailed{}, svc.Recognize(context.Background(), utterance()))
	assert.Error(t, NewWhisperSTT(WhisperConfig{}, nil).Init(context.Background()))
}
