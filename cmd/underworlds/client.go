package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kalambet/underworlds/internal/config"
)

// apiClient talks to the admin surface of a running underworlds server.
type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var newAPIClient = func() (*apiClient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	token, err := config.GetAPIToken(cfg, config.NewKeychain())
	if err != nil {
		return nil, fmt.Errorf("getting API token: %w", err)
	}

	return &apiClient{
		baseURL:    "http://" + cfg.Addr(),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type exchangeRow struct {
	ID         string `json:"id"`
	SessionID  string `json:"session_id"`
	CreatedAt  string `json:"created_at"`
	UserText   string `json:"user_text"`
	Reply      string `json:"reply"`
	Backend    string `json:"backend"`
	Fallback   bool   `json:"fallback"`
	Error      string `json:"error"`
	DurationMs int64  `json:"duration_ms"`
}

// exchangeFilter narrows an exchanges listing. Zero values leave a field unfiltered.
type exchangeFilter struct {
	SessionID    string
	FallbackOnly bool
	Limit        int
}

func (f exchangeFilter) query() url.Values {
	q := url.Values{}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.SessionID != "" {
		q.Set("session", f.SessionID)
	}
	if f.FallbackOnly {
		q.Set("fallback", "true")
	}
	return q
}

type serverStats struct {
	Sessions        int            `json:"sessions"`
	Exchanges       int            `json:"exchanges"`
	Fallbacks       int            `json:"fallbacks"`
	CheckoutIntents map[string]int `json:"checkout_intents"`
}

func (c *apiClient) exchanges(ctx context.Context, f exchangeFilter) ([]exchangeRow, error) {
	path := "/admin/exchanges"
	if q := f.query(); len(q) > 0 {
		path += "?" + q.Encode()
	}
	var rows []exchangeRow
	if err := c.getJSON(ctx, path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// exchange returns one exchange as the raw decoded document so every stored
// field is printed, including ones exchangeRow does not carry.
func (c *apiClient) exchange(ctx context.Context, id string) (map[string]any, error) {
	var ex map[string]any
	if err := c.getJSON(ctx, "/admin/exchanges/"+url.PathEscape(id), &ex); err != nil {
		return nil, err
	}
	return ex, nil
}

func (c *apiClient) stats(ctx context.Context) (serverStats, error) {
	var st serverStats
	err := c.getJSON(ctx, "/admin/stats", &st)
	return st, err
}

func (c *apiClient) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, v)
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable, is underworlds running? (%w)", err)
	}
	return resp, nil
}

// decodeJSON decodes a success body into v. Error responses are reported with
// the message from the server's error envelope when one is present.
func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		var env struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &env) == nil && env.Error.Message != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, env.Error.Message)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
