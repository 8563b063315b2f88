package backend

import (
	"context"

	"github.com/kalambet/underworlds/internal/assistant"
	"github.com/kalambet/underworlds/internal/proxy"
)

const DefaultOpenRouterModel = "google/gemini-2.5-flash"

// OpenRouter answers through OpenRouter's chat completions endpoint.
type OpenRouter struct {
	client *proxy.Client
	model  string
	system string
}

// NewOpenRouter wraps client. A nil client makes every call fail with
// ErrMissingCredential.
func NewOpenRouter(client *proxy.Client, model, system string) *OpenRouter {
	if model == "" {
		model = DefaultOpenRouterModel
	}
	return &OpenRouter{client: client, model: model, system: system}
}

func (o *OpenRouter) Reply(ctx context.Context, history []assistant.Turn, message string) (string, error) {
	if o.client == nil {
		return "", ErrMissingCredential
	}

	msgs := make([]proxy.Message, 0, len(history)+2)
	if o.system != "" {
		msgs = append(msgs, proxy.Message{Role: "system", Content: o.system})
	}
	for _, t := range history {
		msgs = append(msgs, proxy.Message{Role: string(t.Role), Content: t.Text})
	}
	msgs = append(msgs, proxy.Message{Role: "user", Content: message})

	return o.client.Complete(ctx, proxy.ChatRequest{Model: o.model, Messages: msgs})
}
