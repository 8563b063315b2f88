package backend

import (
	"context"

	"github.com/kalambet/underworlds/internal/assistant"
	"github.com/kalambet/underworlds/internal/ollama"
)

const DefaultOllamaModel = "llama3.2"

// Ollama answers with a locally served model.
type Ollama struct {
	client *ollama.Client
	model  string
	system string
}

func NewOllama(client *ollama.Client, model, system string) *Ollama {
	if model == "" {
		model = DefaultOllamaModel
	}
	return &Ollama{client: client, model: model, system: system}
}

// Client exposes the underlying client for readiness checks at startup.
func (o *Ollama) Client() *ollama.Client { return o.client }

// Model returns the model name replies are requested from.
func (o *Ollama) Model() string { return o.model }

func (o *Ollama) Reply(ctx context.Context, history []assistant.Turn, message string) (string, error) {
	msgs := make([]ollama.Message, 0, len(history)+2)
	if o.system != "" {
		msgs = append(msgs, ollama.Message{Role: "system", Content: o.system})
	}
	for _, t := range history {
		msgs = append(msgs, ollama.Message{Role: string(t.Role), Content: t.Text})
	}
	msgs = append(msgs, ollama.Message{Role: "user", Content: message})

	return o.client.Chat(ctx, o.model, msgs, &ollama.Options{Temperature: 0.7})
}
