package unavailable

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"senaibot/core"
)

func TestLLMReturnsFixedReply(t *testing.T) {
	reply, err := NewLLM(errors.New("AZURE_OAI_KEY not set")).Complete(context.Background(), nil, core.DefaultCompletionOptions())
	require.NoError(t, err)
	assert.Equal(t, "Erro de conexão com a IA.", reply)
}

func TestSTTFails(t *testing.T) {
	res := NewSTT(errors.New("no key")).Recognize(context.Background(), core.AudioChunk{})
	failed, ok := res.(core.RecognitionFailed)
	require.True(t, ok)
	assert.ErrorIs(t, failed, ErrUnavailable)
	assert.Contains(t, failed.Error(), "no key")
}

func TestTTSFails(t *testing.T) {
	_, err := NewTTS(nil).Synthesize(context.Background(), "oi")
	assert.ErrorIs(t, err, ErrUnavailable)
}
