package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/underworlds/internal/cart"
	"github.com/kalambet/underworlds/internal/navigation"
	"github.com/kalambet/underworlds/internal/session"
)

// sessionResponse is returned by every session route. Applied is false when
// the request was a rejected input (blank message, bad index, unknown
// target); the snapshot is then unchanged.
type sessionResponse struct {
	Applied  bool                `json:"applied"`
	Session  session.Snapshot    `json:"session"`
	Effects  []navigation.Effect `json:"effects"`
	Checkout *cart.Snapshot      `json:"checkout,omitempty"`
}

func respondSession(w http.ResponseWriter, code int, s *session.Session, applied bool) {
	writeJSON(w, code, sessionResponse{
		Applied: applied,
		Session: s.Snapshot(),
		Effects: s.Effects.Drain(),
	})
}

func loadSession(w http.ResponseWriter, r *http.Request, deps Deps) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	s, err := deps.Sessions.Get(id)
	if errors.Is(err, session.ErrNotFound) {
		httpError(w, http.StatusNotFound, "not_found", "session %q not found", id)
		return nil, false
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "loading session: %v", err)
		return nil, false
	}
	return s, true
}

func handleCreateSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondSession(w, http.StatusCreated, deps.Sessions.Create(), true)
	}
}

func handleGetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s, ok := loadSession(w, r, deps); ok {
			respondSession(w, http.StatusOK, s, true)
		}
	}
}

func handleDeleteSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := deps.Sessions.Delete(id); err != nil {
			httpError(w, http.StatusNotFound, "not_found", "session %q not found", id)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleNavigate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(w, r, deps)
		if !ok {
			return
		}
		var req struct {
			Target string `json:"target"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		respondSession(w, http.StatusOK, s, s.Nav.NavigateTo(req.Target))
	}
}

type viewRequest struct {
	Kind string          `json:"kind"`
	ID   json.RawMessage `json:"id,omitempty"`
}

// idString accepts the id as a JSON string or number.
func (v viewRequest) idString() string {
	var s string
	if err := json.Unmarshal(v.ID, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(v.ID, &n); err == nil {
		return n.String()
	}
	return ""
}

func handleView(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(w, r, deps)
		if !ok {
			return
		}
		var req viewRequest
		if !decodeBody(w, r, &req) {
			return
		}

		var applied bool
		switch navigation.Kind(req.Kind) {
		case navigation.KindHome:
			applied = s.Nav.GoHome()
		case navigation.KindProduct:
			applied = s.Nav.OpenProduct(req.idString())
		case navigation.KindJournal:
			if id, err := strconv.Atoi(req.idString()); err == nil {
				applied = s.Nav.OpenArticle(id)
			}
		case navigation.KindCheckout:
			applied = s.Nav.OpenCheckout()
		}
		respondSession(w, http.StatusOK, s, applied)
	}
}

func handleOverlay(deps Deps, open bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(w, r, deps)
		if !ok {
			return
		}
		kind, ok := navigation.ParseOverlay(chi.URLParam(r, "kind"))
		if !ok {
			respondSession(w, http.StatusOK, s, false)
			return
		}
		var applied bool
		if open {
			applied = s.Nav.OpenOverlay(kind)
		} else {
			applied = s.Nav.CloseOverlay(kind)
		}
		respondSession(w, http.StatusOK, s, applied)
	}
}

func handleAddToCart(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(w, r, deps)
		if !ok {
			return
		}
		var req struct {
			ProductID string `json:"product_id"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		p, found := deps.Catalog.Product(req.ProductID)
		if found {
			s.Cart.Add(p)
		}
		respondSession(w, http.StatusOK, s, found)
	}
}

func handleRemoveFromCart(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(w, r, deps)
		if !ok {
			return
		}
		var applied bool
		if idx, err := strconv.Atoi(chi.URLParam(r, "index")); err == nil {
			applied = s.Cart.Remove(idx)
		}
		respondSession(w, http.StatusOK, s, applied)
	}
}

// handleCheckout hands the cart to the checkout collaborator and moves the
// visitor to the checkout view. The cart keeps its items.
func handleCheckout(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(w, r, deps)
		if !ok {
			return
		}
		snap, err := s.Cart.Checkout(r.Context())
		if errors.Is(err, cart.ErrEmptyCart) {
			respondSession(w, http.StatusOK, s, false)
			return
		}
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "checkout hand-off failed: %v", err)
			return
		}
		s.Nav.OpenCheckout()
		writeJSON(w, http.StatusOK, sessionResponse{
			Applied:  true,
			Session:  s.Snapshot(),
			Effects:  s.Effects.Drain(),
			Checkout: &snap,
		})
	}
}

func handleSendMessage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(w, r, deps)
		if !ok {
			return
		}
		var req struct {
			Text string `json:"text"`
			Wait bool   `json:"wait"`
		}
		if !decodeBody(w, r, &req) {
			return
		}

		done, applied := s.Assistant.Send(req.Text)
		if applied && req.Wait {
			// A request timeout leaves the reply pending; the transcript
			// still receives it.
			select {
			case <-done:
			case <-r.Context().Done():
			}
		}
		code := http.StatusOK
		if applied && !req.Wait {
			code = http.StatusAccepted
		}
		respondSession(w, code, s, applied)
	}
}

// handleGetAssistant returns the transcript. With ?wait=true it blocks until
// no reply is pending or the request times out.
func handleGetAssistant(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(w, r, deps)
		if !ok {
			return
		}
		if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
			if err := s.Assistant.Wait(r.Context()); err != nil {
				deps.Logger.Debug("assistant wait ended before reply", "session_id", s.ID, "error", err)
			}
		}
		writeJSON(w, http.StatusOK, s.Assistant.Snapshot())
	}
}
