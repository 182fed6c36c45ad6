package tts

import "time"

type TTSConfig struct {
	QueueSize           int  `json:"queue_size"`            // Pending utterances kept before new ones are dropped.
	SpeakTimeoutSeconds int  `json:"speak_timeout_seconds"` // Upper bound for synthesis plus playback of one utterance.
	Normalize           bool `json:"normalize"`             // Strip markdown and emoji before synthesis.
}

// DefaultConfig returns a TTSConfig with sensible defaults.
func DefaultConfig() TTSConfig {
	return TTSConfig{
		QueueSize:           4,
		SpeakTimeoutSeconds: 120,
		Normalize:           true,
	}
}

func (c TTSConfig) withDefaults() TTSConfig {
	d := DefaultConfig()
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.SpeakTimeoutSeconds <= 0 {
		c.SpeakTimeoutSeconds = d.SpeakTimeoutSeconds
	}
	return c
}

func (c TTSConfig) speakTimeout() time.Duration {
	return time.Duration(c.SpeakTimeoutSeconds) * time.Second
}
