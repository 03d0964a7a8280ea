package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the voice chat service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	// BrainProvider selects the language model backend: auto, gemini,
	// openai, or mock.
	BrainProvider string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// SpeechProvider selects transcription and synthesis backends: auto,
	// cloud, or mock. "auto" picks cloud when keys are present.
	SpeechProvider string

	GoogleSpeechAPIKey  string
	GoogleSpeechBaseURL string

	ElevenLabsAPIKey       string
	ElevenLabsBaseURL      string
	ElevenLabsOutputFormat string

	// ContextWindowTurns bounds how many trailing turns are replayed to the
	// language model on each generation.
	ContextWindowTurns int

	// MinRecording rejects decodable recordings shorter than this without a
	// transcription call.
	MinRecording time.Duration

	// PersonaFile optionally overrides the built-in personality, language
	// and voice catalog with a YAML file.
	PersonaFile string

	MaxRecordingBytes int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:            envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:    envOrDefault("APP_METRICS_NAMESPACE", "voicechat"),
		AllowAnyOrigin:      false,
		BrainProvider:       envOrDefault("BRAIN_PROVIDER", "auto"),
		GeminiAPIKey:        stringsTrimSpace("GEMINI_API_KEY"),
		GeminiModel:         envOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:        stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIModel:         envOrDefault("OPENAI_MODEL", ""),
		OpenAIBaseURL:       stringsTrimSpace("OPENAI_BASE_URL"),
		SpeechProvider:      envOrDefault("SPEECH_PROVIDER", "auto"),
		GoogleSpeechAPIKey:  stringsTrimSpace("GOOGLE_SPEECH_API_KEY"),
		GoogleSpeechBaseURL: envOrDefault("GOOGLE_SPEECH_BASE_URL", "https://speech.googleapis.com"),
		ElevenLabsAPIKey:    stringsTrimSpace("ELEVENLABS_API_KEY"),
		ElevenLabsBaseURL:   envOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		// MP3 plays directly in every browser audio element.
		ElevenLabsOutputFormat: envOrDefault("ELEVENLABS_OUTPUT_FORMAT", "mp3_44100_128"),
		ContextWindowTurns:     5,
		MinRecording:           100 * time.Millisecond,
		PersonaFile:            stringsTrimSpace("APP_PERSONA_FILE"),
		MaxRecordingBytes:      10 << 20,
		ShutdownTimeout:        15 * time.Second,
		// Browser chat sessions idle far longer than realtime calls.
		SessionInactivityTimeout: 30 * time.Minute,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MinRecording, err = durationFromEnv("APP_MIN_RECORDING", cfg.MinRecording)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.ContextWindowTurns, err = intFromEnv("APP_CONTEXT_WINDOW_TURNS", cfg.ContextWindowTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxRecordingBytes, err = intFromEnv("APP_MAX_RECORDING_BYTES", cfg.MaxRecordingBytes)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.ContextWindowTurns <= 0 {
		return Config{}, fmt.Errorf("APP_CONTEXT_WINDOW_TURNS must be positive")
	}
	if cfg.MaxRecordingBytes <= 0 {
		return Config{}, fmt.Errorf("APP_MAX_RECORDING_BYTES must be positive")
	}
	switch cfg.BrainProvider {
	case "auto", "gemini", "openai", "mock":
	default:
		return Config{}, fmt.Errorf("BRAIN_PROVIDER must be auto, gemini, openai or mock")
	}
	switch cfg.SpeechProvider {
	case "auto", "cloud", "mock":
	default:
		return Config{}, fmt.Errorf("SPEECH_PROVIDER must be auto, cloud or mock")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
