package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/underworlds/internal/checkout"
	"github.com/kalambet/underworlds/internal/storage"
)

// AdminStore is the operator view of storage.
type AdminStore interface {
	ListExchanges(f storage.ExchangeFilter) ([]storage.Exchange, error)
	GetExchange(id string) (storage.Exchange, error)
	ExchangeStats() (storage.ExchangeStats, error)
	CountJobs(typ string) (map[string]int, error)
	GetJob(id string) (storage.Job, error)
}

type exchangeView struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	CreatedAt  time.Time `json:"created_at"`
	UserText   string    `json:"user_text"`
	Reply      string    `json:"reply"`
	Backend    string    `json:"backend"`
	Fallback   bool      `json:"fallback"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}

func toExchangeView(e storage.Exchange) exchangeView {
	return exchangeView{
		ID:         e.ID,
		SessionID:  e.SessionID,
		CreatedAt:  e.CreatedAt,
		UserText:   e.UserText,
		Reply:      e.Reply,
		Backend:    e.Backend,
		Fallback:   e.Fallback,
		Error:      e.Error,
		DurationMs: e.Duration.Milliseconds(),
	}
}

type checkoutIntentView struct {
	ID          string           `json:"id"`
	Status      string           `json:"status"`
	Attempts    int              `json:"attempts"`
	MaxAttempts int              `json:"max_attempts"`
	RunAfter    time.Time        `json:"run_after"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	LastError   string           `json:"last_error,omitempty"`
	Intent      *checkout.Intent `json:"intent,omitempty"`
}

// toCheckoutIntentView leaves Intent nil when the stored payload does not
// decode; the job row is still reported.
func toCheckoutIntentView(j storage.Job) checkoutIntentView {
	v := checkoutIntentView{
		ID:          j.ID,
		Status:      j.Status,
		Attempts:    j.Attempts,
		MaxAttempts: j.MaxAttempts,
		RunAfter:    j.RunAfter,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		LastError:   j.LastError,
	}
	var intent checkout.Intent
	if err := json.Unmarshal([]byte(j.PayloadJSON), &intent); err == nil {
		v.Intent = &intent
	}
	return v
}

func newAdminHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(BearerAuth(deps.Token, deps.Logger))

	r.Get("/exchanges", handleListExchanges(deps))
	r.Get("/exchanges/{id}", handleGetExchange(deps))
	r.Get("/checkout/{id}", handleGetCheckoutIntent(deps))
	r.Get("/stats", handleStats(deps))

	return r
}

func handleListExchanges(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fallbackOnly, _ := strconv.ParseBool(r.URL.Query().Get("fallback"))
		exchanges, err := deps.Admin.ListExchanges(storage.ExchangeFilter{
			SessionID:    r.URL.Query().Get("session"),
			FallbackOnly: fallbackOnly,
			Limit:        parseIntParam(r, "limit", 50, 500),
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list exchanges: %v", err)
			return
		}

		out := make([]exchangeView, len(exchanges))
		for i, e := range exchanges {
			out[i] = toExchangeView(e)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGetExchange(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		e, err := deps.Admin.GetExchange(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "exchange not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get exchange: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, toExchangeView(e))
	}
}

func handleGetCheckoutIntent(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		j, err := deps.Admin.GetJob(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) || (err == nil && j.Type != checkout.JobType) {
			httpError(w, http.StatusNotFound, "not_found", "checkout intent not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get checkout intent: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, toCheckoutIntentView(j))
	}
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := deps.Admin.ExchangeStats()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read stats: %v", err)
			return
		}
		jobs, err := deps.Admin.CountJobs(checkout.JobType)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to count jobs: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"sessions":         deps.Sessions.Len(),
			"exchanges":        st.Total,
			"fallbacks":        st.Fallbacks,
			"checkout_intents": jobs,
		})
	}
}
