package factories

import (
	"errors"

	"senaibot/core"
	ttshandler "senaibot/handlers/tts"
	azuretts "senaibot/services/azure/tts"
	elevenlabstts "senaibot/services/elevenlabs/tts"
	openaitts "senaibot/services/openai/tts"

	"github.com/bytedance/sonic"
)

// TTSFactoryConfig holds provider-specific configs for TTS service construction.
// Set exactly one provider config; the rest should be left nil.
type TTSFactoryConfig struct {
	AzureConfig      *azuretts.AzureTTSConfig           `json:"azure,omitempty"`
	OpenAIConfig     *openaitts.OpenAITTSConfig         `json:"openai,omitempty"`
	ElevenLabsConfig *elevenlabstts.ElevenLabsTTSConfig `json:"elevenlabs,omitempty"`
}

func (c *TTSFactoryConfig) UnmarshalJSON(data []byte) error {
	type plain TTSFactoryConfig
	var p plain
	if err := sonic.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = TTSFactoryConfig(p)
	return nil
}

// BuildTTSService constructs a TTSService from the given factory config.
// Exactly one provider config must be non-nil.
func BuildTTSService(config TTSFactoryConfig, logger *core.Logger) (ttshandler.TTSService, error) {
	if config.AzureConfig != nil {
		return azuretts.NewAzureTTS(*config.AzureConfig, logger), nil
	}
	if config.OpenAIConfig != nil {
		return openaitts.NewOpenAITTS(*config.OpenAIConfig, logger), nil
	}
	if config.ElevenLabsConfig != nil {
		return elevenlabstts.NewElevenLabsTTS(*config.ElevenLabsConfig, logger), nil
	}
	return nil, errors.New("TTSFactoryConfig: no provider config specified")
}
