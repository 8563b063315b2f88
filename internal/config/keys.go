package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type keySpec struct {
	key    string
	typ    keyType
	env    string
	secret bool
	// account is the secret store entry under service "underworlds".
	account string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

const secretService = "underworlds"

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "UNDERWORLDS_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "UNDERWORLDS_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "UNDERWORLDS_API_TOKEN",
		secret: true, account: "api_token",
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "storage.data_dir", typ: kString, env: "UNDERWORLDS_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "UNDERWORLDS_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.format", typ: kString, env: "UNDERWORLDS_LOG_FORMAT",
		apply:   func(cfg *Config, v any) { cfg.Log.Format = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Format },
	},
	{
		key: "images.cdn_url", typ: kString, env: "UNDERWORLDS_IMAGES_CDN_URL",
		apply:   func(cfg *Config, v any) { cfg.Images.CDNURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Images.CDNURL },
	},
	{
		key: "assistant.backend", typ: kString, env: "UNDERWORLDS_ASSISTANT_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Assistant.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Assistant.Backend },
	},
	{
		key: "assistant.model", typ: kString, env: "UNDERWORLDS_ASSISTANT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Assistant.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Assistant.Model },
	},
	{
		key: "assistant.reply_timeout", typ: kDuration, env: "UNDERWORLDS_ASSISTANT_REPLY_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Assistant.ReplyTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Assistant.ReplyTimeout },
	},
	{
		key: "assistant.ollama_url", typ: kString, env: "UNDERWORLDS_ASSISTANT_OLLAMA_URL",
		apply:   func(cfg *Config, v any) { cfg.Assistant.OllamaURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Assistant.OllamaURL },
	},
	{
		key: "assistant.gemini_api_key", typ: kString, env: "UNDERWORLDS_GEMINI_API_KEY",
		secret: true, account: "gemini_api_key",
		apply:   func(cfg *Config, v any) { cfg.Assistant.GeminiAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Assistant.GeminiAPIKey },
	},
	{
		key: "assistant.openrouter_api_key", typ: kString, env: "UNDERWORLDS_OPENROUTER_API_KEY",
		secret: true, account: "openrouter_api_key",
		apply:   func(cfg *Config, v any) { cfg.Assistant.OpenRouterAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Assistant.OpenRouterAPIKey },
	},
	{
		key: "session.idle_ttl", typ: kDuration, env: "UNDERWORLDS_SESSION_IDLE_TTL",
		apply:   func(cfg *Config, v any) { cfg.Session.IdleTTL = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Session.IdleTTL },
	},
	{
		key: "checkout.webhook_url", typ: kString, env: "UNDERWORLDS_CHECKOUT_WEBHOOK_URL",
		apply:   func(cfg *Config, v any) { cfg.Checkout.WebhookURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Checkout.WebhookURL },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if d, err := time.ParseDuration(v); err == nil {
					s.apply(cfg, d)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}

// applySecrets fills secrets still empty after env overrides from the
// platform secret store.
func applySecrets(cfg *Config, kc keychain) {
	for _, s := range specs {
		if !s.secret || s.extract(*cfg) != "" {
			continue
		}
		if v, err := kc.Get(secretService, s.account); err == nil && v != "" {
			s.apply(cfg, v)
		}
	}
}
