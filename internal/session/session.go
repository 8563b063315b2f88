// Package session holds per-visitor state in memory: navigation, cart and
// assistant transcript, keyed by an opaque id.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/underworlds/internal/assistant"
	"github.com/kalambet/underworlds/internal/cart"
	"github.com/kalambet/underworlds/internal/catalog"
	"github.com/kalambet/underworlds/internal/navigation"
)

// DefaultIdleTTL is how long a session survives without requests.
const DefaultIdleTTL = 30 * time.Minute

var ErrNotFound = errors.New("session not found")

// Session is one visitor. Its controllers are individually safe for
// concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	Nav       *navigation.Controller
	Cart      *cart.Cart
	Assistant *assistant.Controller
	Effects   *navigation.EffectLog

	cancel context.CancelFunc

	mu       sync.Mutex
	lastSeen time.Time
}

// LastSeen returns the time of the most recent Get.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(t time.Time) {
	s.mu.Lock()
	if t.After(s.lastSeen) {
		s.lastSeen = t
	}
	s.mu.Unlock()
}

// Snapshot is the full state of a session at one instant.
type Snapshot struct {
	ID        string              `json:"id"`
	CreatedAt time.Time           `json:"created_at"`
	Nav       navigation.Snapshot `json:"navigation"`
	Cart      cart.Snapshot       `json:"cart"`
	Assistant assistant.Snapshot  `json:"assistant"`
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Nav:       s.Nav.Snapshot(),
		Cart:      s.Cart.Snapshot(),
		Assistant: s.Assistant.Snapshot(),
	}
}

// Manager creates and tracks sessions.
type Manager struct {
	catalog     *catalog.Catalog
	backend     assistant.Backend
	backendName string
	recorder    assistant.Recorder
	checkout    cart.CheckoutHandler
	timeout     time.Duration
	idleTTL     time.Duration
	now         func() time.Time
	logger      *slog.Logger
	base        context.Context

	mu       sync.RWMutex
	sessions map[string]*Session
}

type Option func(*Manager)

func WithBackendName(name string) Option { return func(m *Manager) { m.backendName = name } }

func WithRecorder(r assistant.Recorder) Option { return func(m *Manager) { m.recorder = r } }

// WithCheckoutHandler receives every session's checkout intents.
func WithCheckoutHandler(h cart.CheckoutHandler) Option { return func(m *Manager) { m.checkout = h } }

// WithReplyTimeout bounds each assistant call. Zero disables the bound.
func WithReplyTimeout(d time.Duration) Option { return func(m *Manager) { m.timeout = d } }

func WithIdleTTL(d time.Duration) Option { return func(m *Manager) { m.idleTTL = d } }

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.logger = l } }

// WithBaseContext sets the context assistant calls derive from. Cancelling
// it fails every in-flight call.
func WithBaseContext(ctx context.Context) Option { return func(m *Manager) { m.base = ctx } }

func NewManager(cat *catalog.Catalog, backend assistant.Backend, opts ...Option) *Manager {
	m := &Manager{
		catalog:  cat,
		backend:  backend,
		timeout:  assistant.DefaultReplyTimeout,
		idleTTL:  DefaultIdleTTL,
		now:      time.Now,
		logger:   slog.Default(),
		base:     context.Background(),
		sessions: make(map[string]*Session),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Create starts a session on the home view with an empty cart and the
// welcome message.
func (m *Manager) Create() *Session {
	id := uuid.NewString()
	now := m.now()
	ctx, cancel := context.WithCancel(m.base)
	effects := navigation.NewEffectLog()

	s := &Session{
		ID:        id,
		CreatedAt: now,
		Effects:   effects,
		Nav: navigation.NewController(m.catalog,
			navigation.WithScroller(effects),
			navigation.WithHistory(effects),
			navigation.WithLogger(m.logger),
		),
		Cart: cart.New(
			cart.WithOwner(id),
			cart.WithCheckoutHandler(m.checkout),
			cart.WithClock(m.now),
			cart.WithLogger(m.logger),
		),
		Assistant: assistant.NewController(m.backend,
			assistant.WithBackendName(m.backendName),
			assistant.WithRecorder(m.recorder),
			assistant.WithSessionID(id),
			assistant.WithTimeout(m.timeout),
			assistant.WithClock(m.now),
			assistant.WithLogger(m.logger),
			assistant.WithBaseContext(ctx),
		),
		cancel:   cancel,
		lastSeen: now,
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Debug("session created", "session_id", id)
	return s
}

// Get returns the session and marks it as seen.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Delete ends a session and cancels its pending assistant call.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.cancel()
	m.logger.Debug("session deleted", "session_id", id)
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle for longer than the TTL as of now and returns
// how many were removed.
func (m *Manager) Sweep(now time.Time) int {
	var evicted []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if now.Sub(s.LastSeen()) > m.idleTTL {
			delete(m.sessions, id)
			evicted = append(evicted, s)
		}
	}
	m.mu.Unlock()

	for _, s := range evicted {
		s.cancel()
	}
	if len(evicted) > 0 {
		m.logger.Info("evicted idle sessions", "count", len(evicted), "remaining", m.Len())
	}
	return len(evicted)
}

// Run sweeps periodically until ctx is cancelled. The interval is a quarter
// of the TTL, at least one second.
func (m *Manager) Run(ctx context.Context) {
	interval := max(m.idleTTL/4, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(m.now())
		}
	}
}
