package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/underworlds/internal/assistant"
)

// Echo is an offline backend that repeats the message back. Useful for
// local development without credentials.
type Echo struct{}

func (Echo) Reply(ctx context.Context, history []assistant.Turn, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("You said: %s (%d earlier messages)", strings.TrimSpace(message), len(history)), nil
}
