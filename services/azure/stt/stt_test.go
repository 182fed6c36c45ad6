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

type recorded struct {
	path, query string
	header      http.Header
	size        int
}

func newRecognizer(t *testing.T, status int, body string) (*AzureSTT, *recorded) {
	t.Helper()
	got := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		got.path, got.query, got.header, got.size = r.URL.Path, r.URL.RawQuery, r.Header.Clone(), len(raw)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	svc := NewAzureSTT(AzureSTTConfig{APIKey: "speech-key", Endpoint: srv.URL}, core.NewNopLogger())
	require.NoError(t, svc.Init(context.Background()))
	return svc, got
}

func utterance() core.AudioChunk {
	return core.AudioChunk{Data: make([]byte, 6400), SampleRate: 16000, Channels: 1, Format: core.PCM}
}

func TestRecognizeSuccess(t *testing.T) {
	svc, got := newRecognizer(t, http.StatusOK,
		`{"RecognitionStatus":"Success","DisplayText":"Que horas são?","Offset":300000,"Duration":12000000}`)

	res := svc.Recognize(context.Background(), utterance())

	assert.Equal(t, core.Recognized{Text: "Que horas são?"}, res)
	assert.Equal(t, "/speech/recognition/conversation/cognitiveservices/v1", got.path)
	assert.Equal(t, "format=simple&language=pt-BR", got.query)
	assert.Equal(t, "speech-key", got.header.Get("Ocp-Apim-Subscription-Key"))
	assert.Equal(t, "audio/wav; codecs=audio/pcm; samplerate=16000", got.header.Get("Content-Type"))
	assert.Equal(t, 44+6400, got.size)
}

func TestRecognizeNoMatchStatuses(t *testing.T) {
	for _, status := range []string{"NoMatch", "InitialSilenceTimeout", "BabbleTimeout"} {
		t.Run(status, func(t *testing.T) {
			svc, _ := newRecognizer(t, http.StatusOK, `{"RecognitionStatus":"`+status+`"}`)
			assert.Equal(t, core.NoMatch{Reason: status}, svc.Recognize(context.Background(), utterance()))
		})
	}
}

func TestRecognizeFailures(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		want   string
	}{
		"unauthorized": {http.StatusUnauthorized, "Access denied", "status 401"},
		"error status": {http.StatusOK, `{"RecognitionStatus":"Error"}`, `"Error"`},
		"bad json":     {http.StatusOK, `not json`, "decode response"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc, _ := newRecognizer(t, tc.status, tc.body)
			res := svc.Recognize(context.Background(), utterance())
			failed, ok := res.(core.RecognitionFailed)
			require.True(t, ok, "got %T", res)
			assert.Contains(t, failed.Error(), tc.want)
		})
	}
}

func TestInitValidation(t *testing.T) {
	assert.Error(t, NewAzureSTT(AzureSTTConfig{Region: "brazilsouth"}, nil).Init(context.Background()))
	assert.Error(t, NewAzureSTT(AzureSTTConfig{APIKey: "k"}, nil).Init(context.Background()))
	svc := NewAzureSTT(AzureSTTConfig{APIKey: "k", Region: "brazilsouth"}, nil)
	require.NoError(t, svc.Init(context.Background()))
	assert.Contains(t, svc.endpoint(), "https://brazilsouth.stt.speech.microsoft.com/")
}
