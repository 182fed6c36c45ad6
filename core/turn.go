package core

// Role tags who authored a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three conversation roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Turn is one role-tagged message in the conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionOptions are the sampling knobs sent with every completion request.
type CompletionOptions struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens"`
}

// DefaultCompletionOptions matches the tutoring bot's original tuning.
func DefaultCompletionOptions() CompletionOptions {
	return CompletionOptions{
		Temperature:     1.0,
		MaxOutputTokens: 5000,
	}
}
