package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kalambet/underworlds/internal/assistant"
	"github.com/kalambet/underworlds/internal/catalog"
	"github.com/kalambet/underworlds/internal/config"
)

const chatWidth = 72

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the photography assistant in the terminal",
	Long: `Talk to the photography assistant in the terminal.

Uses the configured backend (assistant.backend) unless --backend is given.
Type /quit or press Ctrl-D to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if name, _ := cmd.Flags().GetString("backend"); name != "" {
			cfg.Assistant.Backend = name
		}

		ctx := cmd.Context()
		logger := newLogger(cfg.Log)
		be, err := newAssistantBackend(ctx, cfg, catalog.Default())
		if err != nil {
			return err
		}

		ctrl := assistant.NewController(be,
			assistant.WithBackendName(cfg.Assistant.Backend),
			assistant.WithTimeout(cfg.Assistant.ReplyTimeout),
			assistant.WithLogger(logger),
			assistant.WithBaseContext(ctx),
		)
		return runChat(ctx, ctrl, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().String("backend", "", "assistant backend: gemini, openrouter, ollama or echo")
}

type chatStyles struct {
	user      lipgloss.Style
	assistant lipgloss.Style
	name      lipgloss.Style
	prompt    lipgloss.Style
}

func newChatStyles() chatStyles {
	accent := lipgloss.AdaptiveColor{Light: "24", Dark: "37"}
	return chatStyles{
		user: lipgloss.NewStyle().
			Width(chatWidth-8).
			MarginLeft(8).
			Padding(0, 1).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("240")),
		assistant: lipgloss.NewStyle().
			Width(chatWidth).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent),
		name:   lipgloss.NewStyle().Bold(true).Foreground(accent),
		prompt: lipgloss.NewStyle().Bold(true),
	}
}

func (s chatStyles) render(m assistant.Message) string {
	if m.Role == assistant.RoleUser {
		return s.user.Render(m.Text)
	}
	return s.name.Render(catalog.BrandName) + "\n" + s.assistant.Render(m.Text)
}

// runChat reads one line per turn from in and prints every new transcript
// entry to out. Each send blocks until the reply or the fallback lands.
func runChat(ctx context.Context, ctrl *assistant.Controller, in io.Reader, out io.Writer) error {
	st := newChatStyles()
	printed := 0
	flush := func() {
		msgs := ctrl.Messages()
		for _, m := range msgs[printed:] {
			fmt.Fprintln(out, st.render(m))
		}
		printed = len(msgs)
	}

	flush()
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, st.prompt.Render("› "))
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}

		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		done, ok := ctrl.Send(line)
		if !ok {
			continue
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		flush()
	}
}
