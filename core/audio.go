package core

import "fmt"

type AudioEncodingFormat int

const (
	PCM  AudioEncodingFormat = iota // 16-bit signed little-endian PCM.
	ULAW                            // G.711 μ-law.
	ALAW                            // G.711 A-law.
)

func (f AudioEncodingFormat) String() string {
	switch f {
	case PCM:
		return "pcm"
	case ULAW:
		return "ulaw"
	case ALAW:
		return "alaw"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseAudioEncodingFormat maps the wire name used by the browser client.
func ParseAudioEncodingFormat(name string) (AudioEncodingFormat, error) {
	switch name {
	case "", "pcm", "pcm16", "linear16":
		return PCM, nil
	case "ulaw", "mulaw":
		return ULAW, nil
	case "alaw":
		return ALAW, nil
	default:
		return PCM, fmt.Errorf("unknown audio encoding %q", name)
	}
}

type AudioChunk struct {
	Data       []byte              // Raw audio data.
	SampleRate int                 // Sample rate of the audio data.
	Channels   int                 // Number of audio channels.
	Format     AudioEncodingFormat // Encoding format of the audio data.
}

// GetDurationInSeconds assumes 16-bit PCM for PCM data and one byte per
// sample for the G.711 encodings.
func (ac *AudioChunk) GetDurationInSeconds() float64 {
	if ac.SampleRate == 0 || ac.Channels == 0 {
		return 0.0
	}
	bytesPerSample := 2
	if ac.Format == ULAW || ac.Format == ALAW {
		bytesPerSample = 1
	}
	totalSamples := len(ac.Data) / (bytesPerSample * ac.Channels)
	return float64(totalSamples) / float64(ac.SampleRate)
}

func (ac *AudioChunk) Empty() bool {
	return len(ac.Data) == 0
}
