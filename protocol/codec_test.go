package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"senaibot/core"
)

func TestMarshalKeepsPayloadAsJSON(t *testing.T) {
	data, err := Marshal(MsgReply, TextPayload{Text: "São 10h."})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"reply","payload":{"text":"São 10h."}}`, string(data))
}

func TestMarshalWithoutPayload(t *testing.T) {
	data, err := Marshal(MsgReset, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"reset"}`, string(data))
}

func TestUnmarshalAudioStart(t *testing.T) {
	env, err := Unmarshal([]byte(`{"type":"audio_start","payload":{"sample_rate":48000,"channels":1,"encoding":"pcm"}}`))
	require.NoError(t, err)
	assert.Equal(t, MsgAudioStart, env.Type)

	start, err := UnmarshalPayload[AudioStartPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, AudioStartPayload{SampleRate: 48000, Channels: 1, Encoding: "pcm"}, start)
}

func TestReadyRoundTrip(t *testing.T) {
	turns := []core.Turn{{Role: core.RoleUser, Content: "Olá"}, {Role: core.RoleAssistant, Content: "Oi!"}}
	data, err := Marshal(MsgReady, ReadyPayload{SessionID: "abc", Turns: turns})
	require.NoError(t, err)

	env, err := Unmarshal(data)
	require.NoError(t, err)
	ready, err := UnmarshalPayload[ReadyPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, "abc", ready.SessionID)
	assert.Equal(t, turns, ready.Turns)
}

func TestUnmarshalErrors(t *testing.T) {
	_, err := Unmarshal([]byte(`not json`))
	assert.Error(t, err)

	_, err = Unmarshal([]byte(`{"payload":{}}`))
	assert.ErrorContains(t, err, "missing type")

	_, err = UnmarshalPayload[TextPayload]([]byte(`{"text": 5}`))
	assert.Error(t, err)
}

func TestUnmarshalPayloadEmpty(t *testing.T) {
	v, err := UnmarshalPayload[TextPayload](nil)
	require.NoError(t, err)
	assert.Empty(t, v.Text)
}
