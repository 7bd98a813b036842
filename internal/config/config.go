package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server        ServerConfig        `toml:"server"`        // HTTP server settings
	Logging       LoggingConfig       `toml:"logging"`       // Application logging settings
	Auth          AuthConfig          `toml:"auth"`          // API key gating for the /api/v1 routes
	Transcription TranscriptionConfig `toml:"transcription"` // Audio transcription provider settings
	Generation    GenerationConfig    `toml:"generation"`    // Structured content generation settings
	YouTube       YouTubeConfig       `toml:"youtube"`       // Third-party transcript fetch settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port               int      `toml:"port"`                  // HTTP port for the server
	Host               string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs    int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs   int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response
	IdleTimeoutSecs    int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// AuthConfig contains API key authentication settings.
// The key itself comes from the API_KEY environment variable, never the file.
type AuthConfig struct {
	Enabled bool   `toml:"enabled"` // Require a bearer API key on /api/v1 routes
	APIKey  string `toml:"-"`       // Resolved from the environment at load time
}

// Transcription provider selection values
const (
	TranscriptionProviderSpeech    = "speech"     // Dedicated speech-transcription endpoint (multipart upload)
	TranscriptionProviderChatAudio = "chat_audio" // Multimodal chat endpoint (base64 input_audio block)
)

// TranscriptionConfig contains settings for the audio transcription providers.
// Both providers authenticate with the same upstream account, so they share
// one API key (GROQ_API_KEY).
type TranscriptionConfig struct {
	Provider       string  `toml:"provider"`         // Primary provider: "speech" or "chat_audio"
	Fallback       bool    `toml:"fallback"`         // On upstream failure of the primary, try the other provider
	SpeechBaseURL  string  `toml:"speech_base_url"`  // Base URL for the dedicated speech endpoint
	SpeechModel    string  `toml:"speech_model"`     // Model for the speech endpoint (e.g., "whisper-large-v3")
	ChatBaseURL    string  `toml:"chat_base_url"`    // Base URL for the multimodal chat endpoint
	ChatModel      string  `toml:"chat_model"`       // Model for the chat endpoint
	Language       string  `toml:"language"`         // Optional language hint (e.g., "en")
	Prompt         string  `toml:"prompt"`           // Optional domain-adaptation prompt
	Temperature    float64 `toml:"temperature"`      // Sampling temperature for the speech endpoint
	MaxUploadMB    int     `toml:"max_upload_mb"`    // Maximum accepted payload size in MiB (default 25)
	TimeoutSecs    int     `toml:"timeout_seconds"`  // Bound on each outbound transcription call
	APIKey         string  `toml:"-"`                // Resolved from GROQ_API_KEY at load time
}

// Generation provider selection values
const (
	GenerationProviderOpenAI = "openai" // Any OpenAI-compatible chat-completions endpoint
	GenerationProviderGemini = "gemini" // Native Gemini API via the genai SDK
)

// GenerationConfig contains settings for the structured content generation step
type GenerationConfig struct {
	Provider    string  `toml:"provider"`        // "openai" or "gemini"
	BaseURL     string  `toml:"base_url"`        // Base URL for the OpenAI-compatible endpoint (ignored for "gemini")
	Model       string  `toml:"model"`           // Model identifier (e.g., "gemini-2.0-flash")
	Temperature float64 `toml:"temperature"`     // Sampling temperature (default 0.7)
	TimeoutSecs int     `toml:"timeout_seconds"` // Bound on each outbound generation call
	APIKey      string  `toml:"-"`               // Resolved from GEMINI_API_KEY (or OPENAI_API_KEY) at load time
}

// YouTubeConfig contains settings for the third-party transcript service
type YouTubeConfig struct {
	BaseURL     string `toml:"base_url"`        // Transcript service endpoint
	Formatted   bool   `toml:"formatted"`       // Request a formatted transcript body
	TimeoutSecs int    `toml:"timeout_seconds"` // Bound on each outbound fetch
}

// Defaults applied after decoding
const (
	defaultSpeechBaseURL = "https://api.groq.com/openai/v1"
	defaultChatBaseURL   = "https://api.groq.com/openai/v1"
	defaultGenBaseURL    = "https://generativelanguage.googleapis.com/v1beta/openai"
	defaultYouTubeURL    = "https://api.kome.ai/api/tools/youtube-transcripts"
	defaultMaxUploadMB   = 25
	defaultTimeoutSecs   = 120
)

// Load reads the configuration from the given TOML file and resolves
// credentials from the environment
func Load(path string) (*Config, error) {
	var config Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	md, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults(md)
	config.loadCredentials()

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in
// order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// applyDefaults fills in unset values after decoding. Defaults whose zero
// value is meaningful (an explicit temperature of 0, formatted = false) are
// keyed on key presence in the file, not on the zero value.
func (c *Config) applyDefaults(md toml.MetaData) {
	if c.Transcription.Provider == "" {
		c.Transcription.Provider = TranscriptionProviderSpeech
	}
	if c.Transcription.SpeechBaseURL == "" {
		c.Transcription.SpeechBaseURL = defaultSpeechBaseURL
	}
	if c.Transcription.SpeechModel == "" {
		c.Transcription.SpeechModel = "whisper-large-v3"
	}
	if c.Transcription.ChatBaseURL == "" {
		c.Transcription.ChatBaseURL = defaultChatBaseURL
	}
	if c.Transcription.MaxUploadMB <= 0 {
		c.Transcription.MaxUploadMB = defaultMaxUploadMB
	}
	if c.Transcription.TimeoutSecs <= 0 {
		c.Transcription.TimeoutSecs = defaultTimeoutSecs
	}

	if c.Generation.Provider == "" {
		c.Generation.Provider = GenerationProviderOpenAI
	}
	if c.Generation.BaseURL == "" {
		c.Generation.BaseURL = defaultGenBaseURL
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "gemini-2.0-flash"
	}
	if !md.IsDefined("generation", "temperature") {
		c.Generation.Temperature = 0.7
	}
	if c.Generation.TimeoutSecs <= 0 {
		c.Generation.TimeoutSecs = defaultTimeoutSecs
	}

	if c.YouTube.BaseURL == "" {
		c.YouTube.BaseURL = defaultYouTubeURL
	}
	if !md.IsDefined("youtube", "formatted") {
		c.YouTube.Formatted = true
	}
	if c.YouTube.TimeoutSecs <= 0 {
		c.YouTube.TimeoutSecs = 30
	}
}

// loadCredentials resolves API keys from the environment. Values are never
// read from the config file so keys stay out of version control.
func (c *Config) loadCredentials() {
	c.Auth.APIKey = os.Getenv("API_KEY")
	c.Transcription.APIKey = os.Getenv("GROQ_API_KEY")

	c.Generation.APIKey = os.Getenv("GEMINI_API_KEY")
	if c.Generation.APIKey == "" {
		c.Generation.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Transcription.Provider {
	case TranscriptionProviderSpeech, TranscriptionProviderChatAudio:
	default:
		return fmt.Errorf("invalid transcription provider: %q (must be %q or %q)",
			c.Transcription.Provider, TranscriptionProviderSpeech, TranscriptionProviderChatAudio)
	}
	if c.Transcription.APIKey == "" {
		return fmt.Errorf("GROQ_API_KEY environment variable is not set")
	}

	switch c.Generation.Provider {
	case GenerationProviderOpenAI, GenerationProviderGemini:
	default:
		return fmt.Errorf("invalid generation provider: %q (must be %q or %q)",
			c.Generation.Provider, GenerationProviderOpenAI, GenerationProviderGemini)
	}
	if c.Generation.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is not set")
	}

	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth is enabled but the API_KEY environment variable is not set")
	}

	return nil
}

// MaxUploadBytes returns the payload size cap in bytes
func (c *TranscriptionConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}
