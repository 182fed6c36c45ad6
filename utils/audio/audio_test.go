package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"senaibot/core"
)

func pcmSamples(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func sampleAt(pcm []byte, i int) int16 {
	return int16(binary.LittleEndian.Uint16(pcm[i*2:]))
}

func TestULawRoundTripIsClose(t *testing.T) {
	pcm := pcmSamples(0, 1000, -1000, 8000, -8000, 30000)

	encoded, err := Encode(pcm, core.ULAW)
	require.NoError(t, err)
	require.Len(t, encoded, 6)

	decoded, err := Decode(encoded, core.ULAW)
	require.NoError(t, err)
	require.Len(t, decoded, len(pcm))
	for i := range 6 {
		want, got := sampleAt(pcm, i), sampleAt(decoded, i)
		tolerance := float64(want)/16 + 16
		if want < 0 {
			tolerance = float64(-want)/16 + 16
		}
		assert.InDelta(t, want, got, tolerance, "sample %d", i)
	}
}

func TestEncodeRejectsOddLength(t *testing.T) {
	_, err := Encode([]byte{1, 2, 3}, core.ULAW)
	assert.Error(t, err)
	_, err = Decode([]byte{1, 2, 3}, core.PCM)
	assert.Error(t, err)
}

func TestWrapAndStripWAV(t *testing.T) {
	pcm := pcmSamples(1, 2, 3, 4)

	wav, err := WrapWAV(pcm, 1, 16000)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(wav[:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, uint32(32000), binary.LittleEndian.Uint32(wav[28:]))
	assert.Len(t, wav, 44+len(pcm))

	stripped, err := StripWAVHeader(wav)
	require.NoError(t, err)
	assert.Equal(t, pcm, stripped)
}

func TestStripWAVHeaderSkipsExtraChunks(t *testing.T) {
	wav, err := WrapWAV(pcmSamples(7, 8), 1, 8000)
	require.NoError(t, err)
	// Insert an odd-sized LIST chunk (padded to 4 bytes) before data.
	list := []byte{'L', 'I', 'S', 'T', 3, 0, 0, 0, 'a', 'b', 'c', 0}
	withList := append(append(append([]byte{}, wav[:36]...), list...), wav[36:]...)

	stripped, err := StripWAVHeader(withList)
	require.NoError(t, err)
	assert.Equal(t, pcmSamples(7, 8), stripped)
}

func TestStripWAVHeaderPassesThroughRawPCM(t *testing.T) {
	pcm := pcmSamples(5, 6, 7, 8, 9, 10, 11)
	out, err := StripWAVHeader(pcm)
	require.NoError(t, err)
	assert.Equal(t, pcm, out)
}

func TestWrapWAVValidation(t *testing.T) {
	_, err := WrapWAV(nil, 1, 16000)
	assert.Error(t, err)
	_, err = WrapWAV(pcmSamples(1), 3, 16000)
	assert.Error(t, err)
	_, err = WrapWAV(pcmSamples(1), 1, 0)
	assert.Error(t, err)
}

func TestResampleChangesLength(t *testing.T) {
	pcm := make([]byte, 48000*2) // one second at 48 kHz mono

	out, err := Resample(pcm, 1, 48000, 16000)
	require.NoError(t, err)
	assert.Len(t, out, 16000*2)

	up, err := Resample(pcmSamples(0, 100), 1, 8000, 16000)
	require.NoError(t, err)
	require.Len(t, up, 4*2)
	assert.Equal(t, int16(50), sampleAt(up, 1))
}

func TestRemix(t *testing.T) {
	mono, err := Remix(pcmSamples(1000, 3000, -2000, -4000), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, pcmSamples(2000, -3000), mono)

	stereo, err := Remix(pcmSamples(5), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, pcmSamples(5, 5), stereo)

	_, err = Remix(pcmSamples(5), 1, 6)
	assert.Error(t, err)
}

func TestConvertAudioChunkULawStereoToPCMMono(t *testing.T) {
	ulaw, err := Encode(pcmSamples(1000, 3000, -2000, -4000), core.ULAW)
	require.NoError(t, err)

	out, err := ConvertAudioChunk(core.AudioChunk{
		Data:       ulaw,
		SampleRate: 8000,
		Channels:   2,
		Format:     core.ULAW,
	}, core.PCM, 1, 16000)
	require.NoError(t, err)

	assert.Equal(t, core.PCM, out.Format)
	assert.Equal(t, 1, out.Channels)
	assert.Equal(t, 16000, out.SampleRate)
	assert.Len(t, out.Data, 4*2)
}

func TestConvertAudioChunkNoop(t *testing.T) {
	in := core.AudioChunk{Data: pcmSamples(1, 2), SampleRate: 16000, Channels: 1, Format: core.PCM}
	out, err := ConvertAudioChunk(in, core.PCM, 1, 16000)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
