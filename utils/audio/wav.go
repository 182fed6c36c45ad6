package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const wavHeaderSize = 44

// WrapWAV prefixes 16-bit PCM with a canonical 44-byte RIFF header, the
// container the short-audio recognizers expect.
func WrapWAV(pcm []byte, channels, sampleRate int) ([]byte, error) {
	switch {
	case len(pcm) == 0:
		return nil, errors.New("audio: PCM data is empty")
	case channels != 1 && channels != 2:
		return nil, errors.New("audio: only mono (1) or stereo (2) channels supported")
	case sampleRate <= 0:
		return nil, errors.New("audio: sample rate must be positive")
	case len(pcm)%(2*channels) != 0:
		return nil, errors.New("audio: PCM data length doesn't match channel count")
	}

	blockAlign := channels * 2
	out := make([]byte, wavHeaderSize, wavHeaderSize+len(pcm))
	le := binary.LittleEndian
	copy(out[0:], "RIFF")
	le.PutUint32(out[4:], uint32(36+len(pcm)))
	copy(out[8:], "WAVEfmt ")
	le.PutUint32(out[16:], 16) // fmt chunk size
	le.PutUint16(out[20:], 1)  // linear PCM
	le.PutUint16(out[22:], uint16(channels))
	le.PutUint32(out[24:], uint32(sampleRate))
	le.PutUint32(out[28:], uint32(sampleRate*blockAlign))
	le.PutUint16(out[32:], uint16(blockAlign))
	le.PutUint16(out[34:], 16) // bits per sample
	copy(out[36:], "data")
	le.PutUint32(out[40:], uint32(len(pcm)))
	return append(out, pcm...), nil
}

// StripWAVHeader returns the data chunk of a RIFF/WAVE buffer. Anything that
// is not a WAV file is returned unchanged.
func StripWAVHeader(buf []byte) ([]byte, error) {
	if len(buf) < 12 || !bytes.Equal(buf[0:4], []byte("RIFF")) || !bytes.Equal(buf[8:12], []byte("WAVE")) {
		return buf, nil
	}
	for off := 12; off+8 <= len(buf); {
		id := string(buf[off : off+4])
		size := int(binary.LittleEndian.Uint32(buf[off+4:]))
		body := off + 8
		if id == "data" {
			if body+size > len(buf) {
				return nil, errors.New("audio: WAV data chunk exceeds buffer length")
			}
			return buf[body : body+size], nil
		}
		off = body + size + size%2 // chunks are word aligned
	}
	return nil, errors.New("audio: WAV data chunk not found")
}
