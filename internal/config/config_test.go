package config

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// mockKeychain is a test double for the platform secret store.
type mockKeychain struct {
	values map[string]string
	err    error
}

func (m *mockKeychain) Get(service, account string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.values[service+"/"+account]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (m *mockKeychain) Set(service, account, value string) error {
	if m.err != nil {
		return m.err
	}
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[service+"/"+account] = value
	return nil
}

// mapBackend is an in-memory ConfigBackend holding values as the JSON file
// backend would decode them.
type mapBackend map[string]any

func (b mapBackend) GetString(key string) (string, bool, error) {
	v, ok := b[key]
	if !ok {
		return "", false, nil
	}
	return fmt.Sprintf("%v", v), true, nil
}

func (b mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := b[key]
	if !ok {
		return 0, false, nil
	}
	i, ok := v.(int)
	if !ok {
		return 0, true, fmt.Errorf("invalid type for %s", key)
	}
	return i, true, nil
}

func (b mapBackend) SetString(key, val string) error  { b[key] = val; return nil }
func (b mapBackend) SetInt(key string, val int) error { b[key] = val; return nil }
func (b mapBackend) Delete(key string) error          { delete(b, key); return nil }

// clearEnv blanks every UNDERWORLDS_* variable for the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied when the backend is empty.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(mapBackend{}, &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Addr() != "127.0.0.1:4100" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
	if cfg.Assistant.Backend != "gemini" {
		t.Errorf("Assistant.Backend = %q, want gemini", cfg.Assistant.Backend)
	}
	if cfg.Assistant.ReplyTimeout != 60*time.Second {
		t.Errorf("Assistant.ReplyTimeout = %v, want 60s", cfg.Assistant.ReplyTimeout)
	}
	if cfg.Session.IdleTTL != 30*time.Minute {
		t.Errorf("Session.IdleTTL = %v, want 30m", cfg.Session.IdleTTL)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Images.CDNURL != "" {
		t.Errorf("Images.CDNURL = %q, want empty (local mode)", cfg.Images.CDNURL)
	}
}

// TestMissingKeysAreNotFatal verifies the server can start without any API key.
func TestMissingKeysAreNotFatal(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(mapBackend{}, &mockKeychain{err: errors.New("locked")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Assistant.GeminiAPIKey != "" {
		t.Errorf("GeminiAPIKey = %q, want empty", cfg.Assistant.GeminiAPIKey)
	}
}

// TestBackendValues verifies that all fields are read from the backend.
func TestBackendValues(t *testing.T) {
	clearEnv(t)

	b := mapBackend{
		"server.host":             "0.0.0.0",
		"server.port":             5000,
		"storage.data_dir":        "/tmp/underworlds-test",
		"log.level":               "debug",
		"log.format":              "json",
		"images.cdn_url":          "https://media.example.com",
		"assistant.backend":       "ollama",
		"assistant.model":         "qwen2.5",
		"assistant.reply_timeout": "15s",
		"assistant.ollama_url":    "http://gpu-box:11434",
		"session.idle_ttl":        "2h",
		"checkout.webhook_url":    "https://hooks.example.com/checkout",
	}

	cfg, err := loadWith(b, &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Addr() != "0.0.0.0:5000" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
	if cfg.Storage.DataDir != "/tmp/underworlds-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.Images.CDNURL != "https://media.example.com" {
		t.Errorf("Images.CDNURL = %q", cfg.Images.CDNURL)
	}
	if cfg.Assistant.Backend != "ollama" || cfg.Assistant.Model != "qwen2.5" {
		t.Errorf("Assistant = %+v", cfg.Assistant)
	}
	if cfg.Assistant.ReplyTimeout != 15*time.Second {
		t.Errorf("ReplyTimeout = %v", cfg.Assistant.ReplyTimeout)
	}
	if cfg.Assistant.OllamaURL != "http://gpu-box:11434" {
		t.Errorf("OllamaURL = %q", cfg.Assistant.OllamaURL)
	}
	if cfg.Session.IdleTTL != 2*time.Hour {
		t.Errorf("IdleTTL = %v", cfg.Session.IdleTTL)
	}
	if cfg.Checkout.WebhookURL != "https://hooks.example.com/checkout" {
		t.Errorf("WebhookURL = %q", cfg.Checkout.WebhookURL)
	}
}

// TestEnvOverride verifies that environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("UNDERWORLDS_SERVER_PORT", "6000")
	t.Setenv("UNDERWORLDS_ASSISTANT_REPLY_TIMEOUT", "0")
	t.Setenv("UNDERWORLDS_GEMINI_API_KEY", "env-key")

	b := mapBackend{"server.port": 5000, "assistant.reply_timeout": "15s"}
	kc := &mockKeychain{values: map[string]string{"underworlds/gemini_api_key": "store-key"}}

	cfg, err := loadWith(b, kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.Assistant.ReplyTimeout != 0 {
		t.Errorf("ReplyTimeout = %v, want 0 (disabled)", cfg.Assistant.ReplyTimeout)
	}
	if cfg.Assistant.GeminiAPIKey != "env-key" {
		t.Errorf("GeminiAPIKey = %q, want env-key", cfg.Assistant.GeminiAPIKey)
	}
}

// TestBadEnvIgnored verifies unparseable env values keep the previous value.
func TestBadEnvIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("UNDERWORLDS_SERVER_PORT", "eighty")
	t.Setenv("UNDERWORLDS_SESSION_IDLE_TTL", "forever")

	cfg, err := loadWith(mapBackend{}, &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4100 || cfg.Session.IdleTTL != 30*time.Minute {
		t.Errorf("defaults not kept: port=%d ttl=%v", cfg.Server.Port, cfg.Session.IdleTTL)
	}
}

// TestSecretStoreFallback verifies the secret store is consulted when no key is in env.
func TestSecretStoreFallback(t *testing.T) {
	clearEnv(t)

	kc := &mockKeychain{values: map[string]string{
		"underworlds/gemini_api_key":     "gem-secret",
		"underworlds/openrouter_api_key": "or-secret",
	}}
	cfg, err := loadWith(mapBackend{}, kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Assistant.GeminiAPIKey != "gem-secret" {
		t.Errorf("GeminiAPIKey = %q", cfg.Assistant.GeminiAPIKey)
	}
	if cfg.Assistant.OpenRouterAPIKey != "or-secret" {
		t.Errorf("OpenRouterAPIKey = %q", cfg.Assistant.OpenRouterAPIKey)
	}
}

// TestSecretsNeverReadFromBackend verifies a key written to the plain config
// file is ignored.
func TestSecretsNeverReadFromBackend(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(mapBackend{"assistant.gemini_api_key": "leaked"}, &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Assistant.GeminiAPIKey != "" {
		t.Errorf("GeminiAPIKey = %q, want empty", cfg.Assistant.GeminiAPIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		b    mapBackend
		want string
	}{
		{"port", mapBackend{"server.port": 70000}, "server.port"},
		{"level", mapBackend{"log.level": "loud"}, "log.level"},
		{"format", mapBackend{"log.format": "xml"}, "log.format"},
		{"timeout", mapBackend{"assistant.reply_timeout": "-1s"}, "reply_timeout"},
		{"ttl", mapBackend{"session.idle_ttl": "0s"}, "idle_ttl"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			_, err := loadWith(tc.b, &mockKeychain{})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestGetAPIToken(t *testing.T) {
	kc := &mockKeychain{}

	tok, err := GetAPIToken(Config{}, kc)
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if len(tok) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(tok))
	}

	again, err := GetAPIToken(Config{}, kc)
	if err != nil {
		t.Fatalf("second GetAPIToken: %v", err)
	}
	if again != tok {
		t.Error("token was regenerated instead of reused")
	}

	cfg := Config{Server: ServerConfig{APIToken: "from-env"}}
	if got, _ := GetAPIToken(cfg, kc); got != "from-env" {
		t.Errorf("token = %q, want configured value", got)
	}
}

func TestGetAPIToken_StoreFailure(t *testing.T) {
	_, err := GetAPIToken(Config{}, &mockKeychain{err: errors.New("read-only")})
	if err == nil {
		t.Fatal("expected error when the token cannot be stored")
	}
}

func TestSetKey(t *testing.T) {
	b := mapBackend{}

	if err := setKeyWith(b, "server.port", "4200"); err != nil {
		t.Fatalf("set port: %v", err)
	}
	if b["server.port"] != 4200 {
		t.Errorf("server.port = %v", b["server.port"])
	}
	if err := setKeyWith(b, "session.idle_ttl", "45m"); err != nil {
		t.Fatalf("set ttl: %v", err)
	}
	if err := setKeyWith(b, "session.idle_ttl", "soon"); err == nil {
		t.Error("expected error for invalid duration")
	}
	if err := setKeyWith(b, "server.port", "high"); err == nil {
		t.Error("expected error for invalid integer")
	}
	if err := setKeyWith(b, "assistant.gemini_api_key", "k"); err == nil {
		t.Error("expected error when setting a secret")
	}
	if err := setKeyWith(b, "nope", "v"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestSetSecret(t *testing.T) {
	kc := &mockKeychain{}
	if err := SetSecret(kc, "assistant.openrouter_api_key", "sk-or"); err != nil {
		t.Fatalf("SetSecret: %v", err)
	}
	if kc.values["underworlds/openrouter_api_key"] != "sk-or" {
		t.Errorf("stored = %v", kc.values)
	}
	if err := SetSecret(kc, "server.port", "1"); err == nil {
		t.Error("expected error for non-secret key")
	}
}

func TestShowAll_HidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Assistant.GeminiAPIKey = "super-secret"

	for _, k := range ShowAll(cfg) {
		if strings.Contains(k.Value, "super-secret") {
			t.Errorf("secret shown under %s", k.Key)
		}
	}
	if len(ShowAll(cfg)) != len(ValidKeys()) {
		t.Error("ShowAll and ValidKeys disagree")
	}
	if len(ValidKeys())+len(SecretKeys()) != len(specs) {
		t.Error("keys not partitioned into plain and secret")
	}
}
