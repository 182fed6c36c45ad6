package turn

import (
	"time"

	"senaibot/core"
)

// DefaultApologyPrefix starts every assistant turn produced from a failed completion.
const DefaultApologyPrefix = "Desculpe, tive um erro técnico: "

type TurnConfig struct {
	ApologyPrefix         string                 `json:"apology_prefix"`
	Completion            core.CompletionOptions `json:"completion"`
	RequestTimeoutSeconds int                    `json:"request_timeout_seconds"` // Zero leaves the timeout to the provider client.
	MuteReplies           bool                   `json:"mute_replies"`            // Store replies without speaking them.
}

// DefaultConfig returns a TurnConfig with sensible defaults.
func DefaultConfig() TurnConfig {
	return TurnConfig{
		ApologyPrefix: DefaultApologyPrefix,
		Completion:    core.DefaultCompletionOptions(),
	}
}

// withDefaults fills the fields a zero TurnConfig leaves unusable. An explicit
// temperature of 0 is kept as long as max_output_tokens is set.
func (c TurnConfig) withDefaults() TurnConfig {
	d := DefaultConfig()
	if c.ApologyPrefix == "" {
		c.ApologyPrefix = d.ApologyPrefix
	}
	if c.Completion == (core.CompletionOptions{}) {
		c.Completion = d.Completion
	}
	if c.Completion.MaxOutputTokens <= 0 {
		c.Completion.MaxOutputTokens = d.Completion.MaxOutputTokens
	}
	return c
}

func (c TurnConfig) requestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}
