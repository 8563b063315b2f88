// Package backend provides the model integrations behind the assistant
// controller.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kalambet/underworlds/internal/assistant"
	"github.com/kalambet/underworlds/internal/ollama"
	"github.com/kalambet/underworlds/internal/proxy"
)

const (
	NameGemini     = "gemini"
	NameOpenRouter = "openrouter"
	NameOllama     = "ollama"
	NameEcho       = "echo"
)

// Names lists every backend the factory knows, in display order.
var Names = []string{NameGemini, NameOpenRouter, NameOllama, NameEcho}

// ErrMissingCredential is returned by every call of a backend built without
// its API key.
var ErrMissingCredential = errors.New("assistant backend has no API key configured")

// Config selects and parameterizes a backend. An empty Model picks the
// backend's default.
type Config struct {
	Name              string
	Model             string
	GeminiAPIKey      string
	OpenRouterAPIKey  string
	OllamaURL         string
	SystemInstruction string
}

// New builds the backend named by cfg.Name. A missing API key is not an
// error here; the backend is returned and fails each call instead.
func New(ctx context.Context, cfg Config) (assistant.Backend, error) {
	switch cfg.Name {
	case NameGemini:
		if cfg.GeminiAPIKey == "" {
			slog.Warn("gemini API key not set, assistant will answer with the fallback text")
		}
		g, err := NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.SystemInstruction)
		if err != nil {
			return nil, err
		}
		return g, nil
	case NameOpenRouter:
		var client *proxy.Client
		if cfg.OpenRouterAPIKey != "" {
			client = proxy.NewClient(cfg.OpenRouterAPIKey)
		} else {
			slog.Warn("openrouter API key not set, assistant will answer with the fallback text")
		}
		return NewOpenRouter(client, cfg.Model, cfg.SystemInstruction), nil
	case NameOllama:
		return NewOllama(ollama.New(cfg.OllamaURL), cfg.Model, cfg.SystemInstruction), nil
	case NameEcho:
		return Echo{}, nil
	default:
		return nil, fmt.Errorf("unknown assistant backend %q (want one of %v)", cfg.Name, Names)
	}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(name string) string {
	switch name {
	case NameGemini:
		return DefaultGeminiModel
	case NameOpenRouter:
		return DefaultOpenRouterModel
	case NameOllama:
		return DefaultOllamaModel
	}
	return ""
}
