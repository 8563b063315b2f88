package backend

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/kalambet/underworlds/internal/assistant"
)

const DefaultGeminiModel = "gemini-2.5-flash"

var errEmptyGeminiText = errors.New("gemini returned empty text")

// Gemini answers through the Gemini API.
type Gemini struct {
	client *genai.Client // nil when no key was configured
	model  string
	system string
}

// NewGemini creates a Gemini backend. With an empty apiKey no client is
// created and every Reply returns ErrMissingCredential.
func NewGemini(ctx context.Context, apiKey, model, system string) (*Gemini, error) {
	if apiKey == "" {
		return newGemini(ctx, nil, model, system)
	}
	return newGemini(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, model, system)
}

// newGemini builds the backend from an explicit client config; cc == nil
// leaves the client unset.
func newGemini(ctx context.Context, cc *genai.ClientConfig, model, system string) (*Gemini, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	g := &Gemini{model: model, system: system}
	if cc == nil {
		return g, nil
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *Gemini) Reply(ctx context.Context, history []assistant.Turn, message string) (string, error) {
	if g.client == nil {
		return "", ErrMissingCredential
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		contents = append(contents, genai.NewContentFromText(t.Text, geminiRole(t.Role)))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	var cfg *genai.GenerateContentConfig
	if g.system != "" {
		// The SDK expects the system instruction under the user role.
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(g.system, genai.RoleUser),
		}
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := res.Text()
	if text == "" {
		return "", errEmptyGeminiText
	}
	return text, nil
}

func geminiRole(r assistant.Role) genai.Role {
	if r == assistant.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}
