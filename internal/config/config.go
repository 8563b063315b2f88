package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Log       LogConfig
	Images    ImagesConfig
	Assistant AssistantConfig
	Session   SessionConfig
	Checkout  CheckoutConfig
}

type ServerConfig struct {
	Host string
	Port int
	// APIToken guards the /admin routes. Secret.
	APIToken string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

type ImagesConfig struct {
	// CDNURL is the media CDN base. Empty serves from the local attachments path.
	CDNURL string
}

type AssistantConfig struct {
	Backend      string
	Model        string
	ReplyTimeout time.Duration
	OllamaURL    string

	GeminiAPIKey     string
	OpenRouterAPIKey string
}

type SessionConfig struct {
	IdleTTL time.Duration
}

type CheckoutConfig struct {
	WebhookURL string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 4100,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Assistant: AssistantConfig{
			Backend:      "gemini",
			ReplyTimeout: 60 * time.Second,
			OllamaURL:    "http://localhost:11434",
		},
		Session: SessionConfig{
			IdleTTL: 30 * time.Minute,
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.kalambet.underworlds)
// and secrets fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/underworlds/config.json
// and secrets fall back to $XDG_DATA_HOME/underworlds/secrets.json.
//
// Environment variables (UNDERWORLDS_*) override backend values on all
// platforms. Missing API keys are not an error: the assistant answers with
// its fallback text instead.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), NewKeychain())
}

// keychain abstracts secret storage for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecrets(&cfg, kc)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("log.level %q: want one of %v", c.Log.Level, logLevels)
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		return fmt.Errorf("log.format %q: want one of %v", c.Log.Format, logFormats)
	}
	if c.Assistant.ReplyTimeout < 0 {
		return fmt.Errorf("assistant.reply_timeout must not be negative")
	}
	if c.Session.IdleTTL <= 0 {
		return fmt.Errorf("session.idle_ttl must be positive")
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
