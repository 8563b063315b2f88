package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/underworlds/internal/api"
	"github.com/kalambet/underworlds/internal/assistant"
	"github.com/kalambet/underworlds/internal/assistant/backend"
	"github.com/kalambet/underworlds/internal/catalog"
	"github.com/kalambet/underworlds/internal/checkout"
	"github.com/kalambet/underworlds/internal/config"
	"github.com/kalambet/underworlds/internal/imageurl"
	"github.com/kalambet/underworlds/internal/ollama"
	"github.com/kalambet/underworlds/internal/proxy"
	"github.com/kalambet/underworlds/internal/session"
	"github.com/kalambet/underworlds/internal/storage"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"start"},
	Short:   "Start the underworlds server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running underworlds server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show underworlds system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "underworlds.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// newLogger builds the process logger from the log section.
func newLogger(lc config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newAssistantBackend builds the configured backend. For ollama it also makes
// sure the daemon is up and the model is pulled.
func newAssistantBackend(ctx context.Context, cfg config.Config, cat *catalog.Catalog) (assistant.Backend, error) {
	be, err := backend.New(ctx, backend.Config{
		Name:              cfg.Assistant.Backend,
		Model:             cfg.Assistant.Model,
		GeminiAPIKey:      cfg.Assistant.GeminiAPIKey,
		OpenRouterAPIKey:  cfg.Assistant.OpenRouterAPIKey,
		OllamaURL:         cfg.Assistant.OllamaURL,
		SystemInstruction: assistant.SystemInstruction(cat),
	})
	if err != nil {
		return nil, err
	}
	if o, ok := be.(*backend.Ollama); ok {
		if err := ollama.EnsureReady(ctx, o.Client(), o.Model(), os.Stderr); err != nil {
			return nil, err
		}
	}
	return be, nil
}

func newNotifier(cfg config.Config, logger *slog.Logger) checkout.Notifier {
	if cfg.Checkout.WebhookURL != "" {
		return checkout.NewWebhookNotifier(cfg.Checkout.WebhookURL)
	}
	return checkout.LogNotifier{Logger: logger}
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "underworlds version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	apiToken, err := config.GetAPIToken(cfg, config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get("http://" + cfg.Addr() + "/health"); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("underworlds is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("underworlds is already running on %s", cfg.Addr())
		return fmt.Errorf("server already running on %s", cfg.Addr())
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()
	if n, err := store.RequeueRunning(); err != nil {
		return fmt.Errorf("requeueing interrupted jobs: %w", err)
	} else if n > 0 {
		slog.Info("requeued interrupted checkout intents", "count", n)
	}

	cat := catalog.Default()
	be, err := newAssistantBackend(ctx, cfg, cat)
	if err != nil {
		return err
	}
	slog.Info("assistant backend ready", "backend", cfg.Assistant.Backend, "model", cfg.Assistant.Model)

	sessions := session.NewManager(cat, be,
		session.WithBackendName(cfg.Assistant.Backend),
		session.WithRecorder(assistant.NewStoreRecorder(store)),
		session.WithCheckoutHandler(checkout.NewQueue(store)),
		session.WithReplyTimeout(cfg.Assistant.ReplyTimeout),
		session.WithIdleTTL(cfg.Session.IdleTTL),
		session.WithLogger(logger),
		session.WithBaseContext(ctx),
	)

	handler := api.NewHandler(api.Deps{
		Catalog:  cat,
		Images:   imageurl.New(cfg.Images.CDNURL),
		Sessions: sessions,
		Admin:    store,
		Token:    apiToken,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	worker := checkout.NewWorker(store, newNotifier(cfg, logger), time.Second)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "underworlds listening on %s\n", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		sessions.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("underworlds is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop underworlds (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to underworlds (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	running := false
	resp, err := client.Get("http://" + cfg.Addr() + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on %s", cfg.Addr())
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	model := cfg.Assistant.Model
	if model == "" {
		model = backend.DefaultModel(cfg.Assistant.Backend)
	}
	printStatus("Backend", "%s", cfg.Assistant.Backend)
	if model != "" {
		printStatus("Model", "%s", model)
	}
	switch cfg.Assistant.Backend {
	case backend.NameGemini:
		printStatus("Gemini key", "%s", setLabel(cfg.Assistant.GeminiAPIKey))
	case backend.NameOpenRouter:
		label := setLabel(cfg.Assistant.OpenRouterAPIKey)
		if cfg.Assistant.OpenRouterAPIKey != "" {
			label += ", " + openRouterKeyStatus(context.Background(), proxy.NewClient(cfg.Assistant.OpenRouterAPIKey))
		}
		printStatus("OpenRouter key", "%s", label)
	case backend.NameOllama:
		if ollama.New(cfg.Assistant.OllamaURL).IsRunning(context.Background()) {
			printStatus("Ollama", "running at %s", cfg.Assistant.OllamaURL)
		} else {
			printStatus("Ollama", "not running")
		}
	}
	if cfg.Images.CDNURL != "" {
		printStatus("Image CDN", "%s", cfg.Images.CDNURL)
	} else {
		printStatus("Image CDN", "local (%s)", imageurl.LocalPrefix)
	}

	if running {
		if c, err := newAPIClient(); err == nil {
			if st, err := c.stats(context.Background()); err == nil {
				printStatus("Sessions", "%d", st.Sessions)
				printStatus("Exchanges", "%d (%d fallbacks)", st.Exchanges, st.Fallbacks)
				printStatus("Checkout intents", "%s", formatJobCounts(st.CheckoutIntents))
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

// openRouterKeyStatus lists models with the key to tell a working key from a
// revoked one.
func openRouterKeyStatus(ctx context.Context, c *proxy.Client) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := c.ListModels(ctx); err != nil {
		return "rejected"
	}
	return "valid"
}

func setLabel(secret string) string {
	if secret == "" {
		return "not set"
	}
	return "set"
}

// formatJobCounts renders {"pending":2,"completed":5} in a stable order.
func formatJobCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	var parts []string
	for _, status := range []string{"pending", "running", "completed", "failed"} {
		if n, ok := counts[status]; ok {
			parts = append(parts, fmt.Sprintf("%d %s", n, status))
		}
	}
	return strings.Join(parts, ", ")
}
