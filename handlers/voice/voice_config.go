package voice

// DefaultNotUnderstoodMessage is returned whenever nothing usable was heard.
const DefaultNotUnderstoodMessage = "Não consegui entender a sua fala!"

// DefaultListeningMessage is shown while the microphone is open.
const DefaultListeningMessage = "Estou ouvindo... Fale algo"

type VoiceConfig struct {
	NotUnderstoodMessage string `json:"not_understood_message"`
	ListeningMessage     string `json:"listening_message"`
}

// DefaultConfig returns a VoiceConfig with the Portuguese user-facing messages.
func DefaultConfig() VoiceConfig {
	return VoiceConfig{
		NotUnderstoodMessage: DefaultNotUnderstoodMessage,
		ListeningMessage:     DefaultListeningMessage,
	}
}
