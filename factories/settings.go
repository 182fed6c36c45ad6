package factories

import (
	"fmt"
	"os"

	"senaibot/server"
	wstransport "senaibot/transports/websocket"

	"github.com/bytedance/sonic"
)

// SettingsConfig is the top-level config loaded from settings.json. It is
// read once at startup and not modified afterwards.
type SettingsConfig struct {
	// Server configures the HTTP listener and session log files.
	Server server.Config `json:"server"`
	// Transport configures how each browser connection captures and plays audio.
	Transport wstransport.Config `json:"transport"`
	// Session selects providers and holds the per-session handler configs.
	Session SessionConfig `json:"session_config"`
}

// DefaultSettingsConfig returns a SettingsConfig pre-filled with provider defaults.
func DefaultSettingsConfig() SettingsConfig {
	return SettingsConfig{
		Server:    server.DefaultConfig(),
		Transport: wstransport.DefaultConfig(),
		Session:   DefaultSessionConfig(),
	}
}

// SettingsConfigFromJSON parses a JSON blob into a SettingsConfig. Absent
// fields keep their defaults; a provider selected in JSON replaces the
// default provider of that kind.
func SettingsConfigFromJSON(data []byte) (SettingsConfig, error) {
	cfg := DefaultSettingsConfig()
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return SettingsConfig{}, fmt.Errorf("settings: %w", err)
	}
	return cfg, nil
}

// SettingsConfigFromFile reads and parses a SettingsConfig from a JSON file.
func SettingsConfigFromFile(path string) (SettingsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettingsConfig(), fmt.Errorf("settings: read %q: %w", path, err)
	}
	return SettingsConfigFromJSON(data)
}
