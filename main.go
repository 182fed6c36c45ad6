package main

import (
	"context"
	"encoding/base64"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"senaibot/core"
	"senaibot/factories"
	"senaibot/server"
	"senaibot/session"

	"github.com/joho/godotenv"
)

func main() {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil {
			core.GetLogger().With(map[string]any{"file": file, "error": err}).Warn("env file not loaded")
		}
	}
	configureLogger()
	logger := core.GetLogger().With(map[string]any{"component": "main"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, apiKeys := loadSettingsFromEnv()
	settings.Session.InjectAPIKeys(apiKeys)

	services := settings.Session.BuildServices(ctx, core.GetLogger())
	defer func() {
		if err := services.Cleanup(); err != nil {
			logger.Warn("service cleanup failed", "error", err)
		}
	}()

	sessionConfig := settings.Session.HandlerConfig()
	newSession := func(ctx context.Context, id string, mic core.Microphone, speaker core.Speaker, l *core.Logger) (*session.Session, error) {
		return services.NewSession(ctx, id, mic, speaker, sessionConfig, l)
	}

	srv := server.New(settings.Server, settings.Transport, newSession, core.GetLogger())
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutting down...")
}

// configureLogger selects the global sink and level from LOG_FORMAT and LOG_LEVEL.
func configureLogger() {
	logger := core.NewDevelopmentLogger()
	if getEnv("LOG_FORMAT", "console") == "json" {
		logger = core.NewJSONLogger(os.Stdout)
	}
	core.SetLogger(*logger.WithLevel(core.ParseLogLevel(getEnv("LOG_LEVEL", "info"))))
}

// loadSettingsFromEnv loads SettingsConfig from SETTINGS_JSON_B64 or a file, and API keys from env vars.
func loadSettingsFromEnv() (factories.SettingsConfig, factories.APIKeys) {
	logger := core.GetLogger()
	var settings factories.SettingsConfig
	var err error

	if b64 := os.Getenv("SETTINGS_JSON_B64"); b64 != "" {
		data, decErr := base64.StdEncoding.DecodeString(b64)
		if decErr != nil {
			logger.With(map[string]any{"error": decErr}).Error("failed to decode SETTINGS_JSON_B64")
			settings = factories.DefaultSettingsConfig()
		} else {
			settings, err = factories.SettingsConfigFromJSON(data)
			if err != nil {
				logger.With(map[string]any{"error": err}).Error("failed to parse SETTINGS_JSON_B64")
				settings = factories.DefaultSettingsConfig()
			} else {
				logger.Info("loaded settings from SETTINGS_JSON_B64")
			}
		}
	} else {
		settingsPath := getEnv("SETTINGS_PATH", "./settings.json")
		settings, err = factories.SettingsConfigFromFile(settingsPath)
		if err != nil {
			logger.With(map[string]any{"path": settingsPath, "error": err}).Warn("failed to load settings, using defaults")
			settings = factories.DefaultSettingsConfig()
		}
	}

	settings.Server.ListenAddr = getEnv("LISTEN_ADDR", settings.Server.ListenAddr)
	settings.Server.LogDir = getEnv("LOG_DIR", settings.Server.LogDir)
	settings.Server.ShutdownTimeoutSeconds = getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", settings.Server.ShutdownTimeoutSeconds)

	apiKeys := factories.APIKeys{
		AzureOpenAIEndpoint:   getEnv("AZURE_OAI_ENDPOINT", ""),
		AzureOpenAIKey:        getEnv("AZURE_OAI_KEY", ""),
		AzureOpenAIDeployment: getEnv("AZURE_OAI_DEPLOYMENT", ""),
		AzureSpeechKey:        getEnv("AZURE_SPEECH_KEY", ""),
		AzureSpeechRegion:     getEnv("AZURE_SPEECH_REGION", ""),
		OpenAI:                getEnv("OPENAI_API_KEY", ""),
		Groq:                  getEnv("GROQ_API_KEY", ""),
		DeepSeek:              getEnv("DEEPSEEK_API_KEY", ""),
		OpenRouter:            getEnv("OPENROUTER_API_KEY", ""),
		Mistral:               getEnv("MISTRAL_API_KEY", ""),
		Deepgram:              getEnv("DEEPGRAM_API_KEY", ""),
		ElevenLabs:            getEnv("ELEVENLABS_API_KEY", ""),
	}

	return settings, apiKeys
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer with a default fallback
func getEnvAsInt(key string, defaultValue int) int {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultValue
	}
	return val
}
