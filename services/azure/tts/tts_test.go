package tts

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"senaibot/core"
)

func TestSynthesizeSendsSSML(t *testing.T) {
	var header http.Header
	var body, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		header, body, path = r.Header.Clone(), string(raw), r.URL.Path
		_, _ = w.Write(make([]byte, 3200))
	}))
	defer srv.Close()

	svc := NewAzureTTS(AzureTTSConfig{APIKey: "speech-key", Endpoint: srv.URL}, core.NewNopLogger())
	require.NoError(t, svc.Init(context.Background()))

	chunk, err := svc.Synthesize(context.Background(), "2 < 3 & \"ok\"")
	require.NoError(t, err)

	assert.Equal(t, "/cognitiveservices/v1", path)
	assert.Equal(t, "speech-key", header.Get("Ocp-Apim-Subscription-Key"))
	assert.Equal(t, "application/ssml+xml", header.Get("Content-Type"))
	assert.Equal(t, "raw-16khz-16bit-mono-pcm", header.Get("X-Microsoft-OutputFormat"))
	_, err = uuid.Parse(header.Get("X-RequestId"))
	assert.NoError(t, err)

	assert.Contains(t, body, `<voice name="pt-BR-FranciscaNeural">`)
	assert.Contains(t, body, `xml:lang="pt-BR"`)
	assert.Contains(t, body, "2 &lt; 3 &amp; &#34;ok&#34;")

	assert.Equal(t, 16000, chunk.SampleRate)
	assert.InDelta(t, 0.1, chunk.GetDurationInSeconds(), 0.001)
}

func TestSynthesizeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	svc := NewAzureTTS(AzureTTSConfig{APIKey: "k", Endpoint: srv.URL}, core.NewNopLogger())
	require.NoError(t, svc.Init(context.Background()))

	_, err := svc.Synthesize(context.Background(), "oi")
	assert.ErrorContains(t, err, "status 429")
}

func TestSynthesizeBeforeInit(t *testing.T) {
	_, err := NewAzureTTS(AzureTTSConfig{}, nil).Synthesize(context.Background(), "oi")
	assert.Error(t, err)
}
