package factories

import (
	"errors"

	"senaibot/core"
	stthandler "senaibot/handlers/stt"
	azurestt "senaibot/services/azure/stt"
	deepgramstt "senaibot/services/deepgram/stt"
	openaistt "senaibot/services/openai/stt"

	"github.com/bytedance/sonic"
)

// STTFactoryConfig holds provider-specific configs for STT service construction.
// Set exactly one provider config; the rest should be left nil.
type STTFactoryConfig struct {
	AzureConfig    *azurestt.AzureSTTConfig    `json:"azure,omitempty"`
	WhisperConfig  *openaistt.WhisperConfig    `json:"openai,omitempty"`
	DeepgramConfig *deepgramstt.DeepgramConfig `json:"deepgram,omitempty"`
}

func (c *STTFactoryConfig) UnmarshalJSON(data []byte) error {
	type plain STTFactoryConfig
	var p plain
	if err := sonic.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = STTFactoryConfig(p)
	return nil
}

// BuildSTTService constructs an STTService from the given factory config.
// Exactly one provider config must be non-nil.
func BuildSTTService(config STTFactoryConfig, logger *core.Logger) (stthandler.STTService, error) {
	if config.AzureConfig != nil {
		return azurestt.NewAzureSTT(*config.AzureConfig, logger), nil
	}
	if config.WhisperConfig != nil {
		return openaistt.NewWhisperSTT(*config.WhisperConfig, logger), nil
	}
	if config.DeepgramConfig != nil {
		return deepgramstt.NewDeepgramSTT(*config.DeepgramConfig, logger), nil
	}
	return nil, errors.New("STTFactoryConfig: no provider config specified")
}
