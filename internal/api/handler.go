// Package api exposes the catalog and visitor sessions over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/underworlds/internal/catalog"
	"github.com/kalambet/underworlds/internal/imageurl"
	"github.com/kalambet/underworlds/internal/session"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB
	requestTimeout     = 30 * time.Second
)

// Deps holds everything the handler serves from. Admin and Token are
// optional; without both the /admin routes are not mounted.
type Deps struct {
	Catalog  *catalog.Catalog
	Images   *imageurl.Resolver
	Sessions *session.Manager
	Admin    AdminStore
	Token    string
	Logger   *slog.Logger
}

// NewHandler returns the root http.Handler.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", handleHealth(deps))

	r.Route("/catalog", func(r chi.Router) {
		r.Get("/products", handleListProducts(deps))
		r.Get("/products/{id}", handleGetProduct(deps))
		r.Get("/articles", handleListArticles(deps))
		r.Get("/articles/{id}", handleGetArticle(deps))
	})
	r.Get("/images/*", handleImage(deps))

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", handleCreateSession(deps))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handleGetSession(deps))
			r.Delete("/", handleDeleteSession(deps))
			r.Post("/navigate", handleNavigate(deps))
			r.Post("/view", handleView(deps))
			r.Post("/overlays/{kind}", handleOverlay(deps, true))
			r.Delete("/overlays/{kind}", handleOverlay(deps, false))
			r.Post("/cart/items", handleAddToCart(deps))
			r.Delete("/cart/items/{index}", handleRemoveFromCart(deps))
			r.Post("/cart/checkout", handleCheckout(deps))
			r.Post("/assistant/messages", handleSendMessage(deps))
			r.Get("/assistant", handleGetAssistant(deps))
		})
	})

	if deps.Admin != nil && deps.Token != "" {
		r.Mount("/admin", newAdminHandler(deps))
	} else {
		deps.Logger.Warn("admin routes disabled: no store or API token")
	}

	return r
}

type pinger interface {
	Ping(ctx context.Context) error
}

// handleHealth reports 503 when the admin store is configured but
// unreachable. Sessions live in memory and never fail the check.
func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p, ok := deps.Admin.(pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				deps.Logger.Error("health check: storage unreachable", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
