package stt

import "senaibot/core"

type STTConfig struct {
	RequiredSampleRate  int                      `json:"required_sample_rate"` // Sample rate the recognizer expects, in Hz.
	RequiredChannels    int                      `json:"required_channels"`
	RequiredAudioFormat core.AudioEncodingFormat `json:"required_audio_format"`
	MinUtteranceMs      int                      `json:"min_utterance_ms"`  // Shorter captures are treated as no-match without calling the provider.
	SilenceThreshold    float64                  `json:"silence_threshold"` // RMS (0..1) under which a capture counts as silence. Zero disables the check.
}

// DefaultConfig matches the short-audio recognizers: 16 kHz mono PCM.
func DefaultConfig() STTConfig {
	return STTConfig{
		RequiredSampleRate:  16000,
		RequiredChannels:    1,
		RequiredAudioFormat: core.PCM,
		MinUtteranceMs:      200,
		SilenceThreshold:    0.005,
	}
}
