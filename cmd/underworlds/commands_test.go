package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/kalambet/underworlds/internal/assistant"
	"github.com/kalambet/underworlds/internal/assistant/backend"
	"github.com/kalambet/underworlds/internal/catalog"
	"github.com/kalambet/underworlds/internal/config"
	"github.com/kalambet/underworlds/internal/proxy"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func disableColor(t *testing.T) {
	t.Helper()
	old := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = old })
}

func TestAPIClient_Exchanges(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /admin/exchanges": `[{"id":"0b7c2f4e-1111","session_id":"s1","created_at":"2026-01-02T03:04:05Z","user_text":"hi","reply":"hello","backend":"echo","fallback":false,"duration_ms":12}]`,
	})

	rows, err := ts.client().exchanges(ctx, exchangeFilter{SessionID: "s1", FallbackOnly: true, Limit: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Reply != "hello" || rows[0].DurationMs != 12 {
		t.Errorf("unexpected row: %+v", rows[0])
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}
	for _, want := range []string{"limit=5", "session=s1", "fallback=true"} {
		if !strings.Contains(r.Path, want) {
			t.Errorf("path = %q, want it to contain %q", r.Path, want)
		}
	}
}

func TestAPIClient_Exchanges_NoFilter(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /admin/exchanges": `[]`,
	})

	rows, err := ts.client().exchanges(ctx, exchangeFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
	if got := ts.requests[0].Path; got != "/admin/exchanges" {
		t.Errorf("path = %q, want no query string", got)
	}
}

func TestAPIClient_Exchanges_ServerError(t *testing.T) {
	ts := newTestServer(t, nil)

	_, err := ts.client().exchanges(ctx, exchangeFilter{Limit: 20})
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if got := err.Error(); got != "server returned 404: not found" {
		t.Errorf("error = %q, want status and envelope message", got)
	}
}

func TestDecodeJSON_PlainErrorBody(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusBadGateway,
		Body:       io.NopCloser(strings.NewReader("upstream down")),
	}
	var v any
	err := decodeJSON(resp, &v)
	if err == nil || err.Error() != "server returned 502: upstream down" {
		t.Errorf("error = %v, want raw body in message", err)
	}
}

func TestAPIClient_Exchange(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /admin/exchanges/ex 1": `{"id":"ex 1","reply":"hello","duration_ms":7}`,
	})

	ex, err := ts.client().exchange(ctx, "ex 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex["reply"] != "hello" {
		t.Errorf("reply = %v, want hello", ex["reply"])
	}
	if got := ts.requests[0].Path; got != "/admin/exchanges/ex%201" {
		t.Errorf("path = %q, want escaped id", got)
	}
}

func TestAPIClient_Stats(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /admin/stats": `{"sessions":3,"exchanges":10,"fallbacks":2,"checkout_intents":{"pending":1,"completed":4}}`,
	})

	st, err := ts.client().stats(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Sessions != 3 || st.Exchanges != 10 || st.Fallbacks != 2 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if got := formatJobCounts(st.CheckoutIntents); got != "1 pending, 4 completed" {
		t.Errorf("formatJobCounts = %q", got)
	}
}

func TestOpenRouterKeyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"invalid key"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"meta-llama/llama-3.1-8b-instruct"}]}`))
	}))
	t.Cleanup(srv.Close)

	if got := openRouterKeyStatus(ctx, proxy.NewClientWithBaseURL("good-key", srv.URL)); got != "valid" {
		t.Errorf("good key = %q, want valid", got)
	}
	if got := openRouterKeyStatus(ctx, proxy.NewClientWithBaseURL("revoked-key", srv.URL)); got != "rejected" {
		t.Errorf("revoked key = %q, want rejected", got)
	}
}

func TestFormatJobCounts_Empty(t *testing.T) {
	if got := formatJobCounts(nil); got != "none" {
		t.Errorf("formatJobCounts(nil) = %q, want none", got)
	}
}

func TestWriteExchanges(t *testing.T) {
	disableColor(t)

	var buf bytes.Buffer
	writeExchanges(&buf, nil)
	if !strings.Contains(buf.String(), "No exchanges found.") {
		t.Errorf("empty output = %q", buf.String())
	}

	buf.Reset()
	writeExchanges(&buf, []exchangeRow{
		{ID: "0b7c2f4e-aaaa", CreatedAt: "2026-01-02T03:04:05Z", UserText: "which print is best?", Fallback: true},
		{ID: "short", CreatedAt: "2026-01-02T03:05:00Z", UserText: strings.Repeat("x", 100)},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "0b7c2f4e  ") || !strings.HasSuffix(lines[0], "[fallback]") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "...") || strings.Contains(lines[1], "[fallback]") {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestWriteCatalog(t *testing.T) {
	disableColor(t)

	var buf bytes.Buffer
	if err := writeCatalog(&buf, catalog.Default(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 prints, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "p1") || !strings.Contains(lines[0], "$0") {
		t.Errorf("line 0 = %q", lines[0])
	}
}

func TestWriteCatalog_Category(t *testing.T) {
	disableColor(t)

	var buf bytes.Buffer
	if err := writeCatalog(&buf, catalog.Default(), "Fine Art"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 1 {
		t.Errorf("expected 1 Fine Art print, got %d lines", n)
	}

	if err := writeCatalog(&buf, catalog.Default(), "Portraits"); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestShowCatalogEntry(t *testing.T) {
	cat := catalog.Default()

	var buf bytes.Buffer
	if err := showCatalogEntry(&buf, cat, "p2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var p catalog.Product
	if err := json.Unmarshal(buf.Bytes(), &p); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if p.ID != "p2" {
		t.Errorf("id = %q, want p2", p.ID)
	}

	buf.Reset()
	if err := showCatalogEntry(&buf, cat, "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var a catalog.Article
	if err := json.Unmarshal(buf.Bytes(), &a); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if a.ID != 1 || a.Title == "" {
		t.Errorf("unexpected article: %+v", a)
	}

	if err := showCatalogEntry(&buf, cat, "p99"); err == nil {
		t.Error("expected error for unknown print")
	}
	if err := showCatalogEntry(&buf, cat, "42"); err == nil {
		t.Error("expected error for unknown story")
	}
}

func TestCatalogShow_MissingArgs(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"catalog", "show"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestImageURLCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	defer rootCmd.SetOut(nil)
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"image-url", "DSC09894 2.jpeg", "--cdn", "https://media.example.com", "--width", "800", "--format", "webp"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "https://media.example.com/cdn-cgi/image/width=800,format=webp/DSC09894%202.jpeg"
	if got := strings.TrimSpace(out.String()); got != want {
		t.Errorf("url = %q, want %q", got, want)
	}
}

func TestImageURLCommand_InvalidOption(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"image-url", "DSC00670.JPG", "--cdn", "https://media.example.com", "--quality", "150"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for quality out of range")
	}
	if !strings.Contains(err.Error(), "quality") {
		t.Errorf("error = %q, want it to mention quality", err.Error())
	}
}

func TestRunChat_Echo(t *testing.T) {
	ctrl := assistant.NewController(backend.Echo{}, assistant.WithBackendName(backend.NameEcho))

	var out bytes.Buffer
	in := strings.NewReader("hello\n\n/quit\nignored\n")
	if err := runChat(ctx, ctrl, in, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := ctrl.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected welcome, question and reply, got %d messages", len(msgs))
	}
	if !strings.Contains(out.String(), "You said: hello") {
		t.Errorf("output missing echo reply: %q", out.String())
	}
	if !strings.Contains(out.String(), catalog.BrandName) {
		t.Errorf("output missing assistant name: %q", out.String())
	}
}

func TestRunChat_EOF(t *testing.T) {
	ctrl := assistant.NewController(backend.Echo{})

	var out bytes.Buffer
	if err := runChat(ctx, ctrl, strings.NewReader(""), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ctrl.Messages()) != 1 {
		t.Errorf("expected only the welcome message, got %d", len(ctrl.Messages()))
	}
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		l := newLogger(config.LogConfig{Level: tt.level, Format: "json"})
		if !l.Enabled(ctx, tt.want) {
			t.Errorf("%s: level %v not enabled", tt.level, tt.want)
		}
		if tt.want > slog.LevelDebug && l.Enabled(ctx, tt.want-4) {
			t.Errorf("%s: level %v unexpectedly enabled", tt.level, tt.want-4)
		}
	}
}

func TestSecretLabel(t *testing.T) {
	var cfg config.Config
	cfg.Assistant.GeminiAPIKey = "k"

	if got := secretLabel(cfg, "assistant.gemini_api_key"); got != "set" {
		t.Errorf("gemini = %q, want set", got)
	}
	if got := secretLabel(cfg, "assistant.openrouter_api_key"); got != "not set" {
		t.Errorf("openrouter = %q, want not set", got)
	}
}

func TestNoColorFlag(t *testing.T) {
	old := color.NoColor
	defer func() { color.NoColor = old; noColor = false }()
	defer rootCmd.SetArgs(nil)

	color.NoColor = false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	defer rootCmd.SetOut(nil)

	rootCmd.SetArgs([]string{"--no-color", "catalog", "list"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !color.NoColor {
		t.Error("--no-color should disable fatih/color output")
	}
	if strings.Contains(out.String(), "\033[") {
		t.Errorf("output contains ANSI codes: %q", out.String())
	}
}
