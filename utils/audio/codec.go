// Package audio converts between the sample formats spoken by the browser,
// the recognizers and the synthesizers. Everything is 16-bit little-endian
// PCM internally; G.711 is only a wire encoding.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"senaibot/core"

	"github.com/zaf/g711"
)

var errOddPCM = errors.New("audio: PCM data must have even length (16-bit samples)")

// Decode returns data as 16-bit PCM.
func Decode(data []byte, format core.AudioEncodingFormat) ([]byte, error) {
	switch format {
	case core.PCM:
		if len(data)%2 != 0 {
			return nil, errOddPCM
		}
		return data, nil
	case core.ULAW:
		return g711.DecodeUlaw(data), nil
	case core.ALAW:
		return g711.DecodeAlaw(data), nil
	default:
		return nil, fmt.Errorf("audio: cannot decode %s", format)
	}
}

// Encode turns 16-bit PCM into format.
func Encode(pcm []byte, format core.AudioEncodingFormat) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, errOddPCM
	}
	switch format {
	case core.PCM:
		return pcm, nil
	case core.ULAW:
		return g711.EncodeUlaw(pcm), nil
	case core.ALAW:
		return g711.EncodeAlaw(pcm), nil
	default:
		return nil, fmt.Errorf("audio: cannot encode %s", format)
	}
}

// ConvertAudioChunk decodes input, remixes channels, resamples and encodes
// the result in format. A chunk already in the target shape is returned as is.
func ConvertAudioChunk(input core.AudioChunk, format core.AudioEncodingFormat, channels, sampleRate int) (core.AudioChunk, error) {
	if input.Format == format && input.Channels == channels && input.SampleRate == sampleRate {
		return input, nil
	}

	pcm, err := Decode(input.Data, input.Format)
	if err != nil {
		return core.AudioChunk{}, err
	}
	if pcm, err = Remix(pcm, input.Channels, channels); err != nil {
		return core.AudioChunk{}, err
	}
	if pcm, err = Resample(pcm, channels, input.SampleRate, sampleRate); err != nil {
		return core.AudioChunk{}, err
	}
	out, err := Encode(pcm, format)
	if err != nil {
		return core.AudioChunk{}, err
	}
	return core.AudioChunk{Data: out, SampleRate: sampleRate, Channels: channels, Format: format}, nil
}

// Remix converts interleaved PCM between mono and stereo. Stereo is folded
// to mono by averaging both sides.
func Remix(pcm []byte, from, to int) ([]byte, error) {
	switch {
	case from == to:
		return pcm, nil
	case from == 1 && to == 2:
		out := make([]byte, 0, len(pcm)*2)
		for i := 0; i+1 < len(pcm); i += 2 {
			out = append(out, pcm[i], pcm[i+1], pcm[i], pcm[i+1])
		}
		return out, nil
	case from == 2 && to == 1:
		out := make([]byte, len(pcm)/4*2)
		for i := range len(pcm) / 4 {
			left := int(int16(binary.LittleEndian.Uint16(pcm[i*4:])))
			right := int(int16(binary.LittleEndian.Uint16(pcm[i*4+2:])))
			binary.LittleEndian.PutUint16(out[i*2:], uint16(int16((left+right)/2)))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("audio: unsupported channel conversion: %d to %d", from, to)
	}
}

// Resample changes the rate of interleaved PCM by linear interpolation.
// Fine for speech; not meant for music.
func Resample(pcm []byte, channels, from, to int) ([]byte, error) {
	if from <= 0 || to <= 0 || channels <= 0 {
		return nil, fmt.Errorf("audio: invalid resample %d Hz -> %d Hz, %d channels", from, to, channels)
	}
	if from == to {
		return pcm, nil
	}
	frameSize := 2 * channels
	if len(pcm)%frameSize != 0 {
		return nil, errors.New("audio: PCM data length doesn't match channel count")
	}

	inFrames := len(pcm) / frameSize
	outFrames := int(int64(inFrames) * int64(to) / int64(from))
	if outFrames == 0 {
		return nil, errors.New("audio: too short to resample")
	}

	at := func(frame, ch int) float64 {
		return float64(int16(binary.LittleEndian.Uint16(pcm[frame*frameSize+ch*2:])))
	}

	out := make([]byte, outFrames*frameSize)
	step := float64(from) / float64(to)
	for i := range outFrames {
		pos := float64(i) * step
		lo := int(pos)
		hi := min(lo+1, inFrames-1)
		frac := pos - float64(lo)
		for ch := range channels {
			v := at(lo, ch) + (at(hi, ch)-at(lo, ch))*frac
			v = math.Max(math.MinInt16, math.Min(math.MaxInt16, v))
			binary.LittleEndian.PutUint16(out[i*frameSize+ch*2:], uint16(int16(v)))
		}
	}
	return out, nil
}
