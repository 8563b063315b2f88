// Package assistant runs the visitor's conversation with the photography
// assistant: one request in flight at a time, an append-only transcript, and
// a fixed apology in place of any backend failure.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	WelcomeText  = "Welcome to Underworlds. I can answer questions about Alejandro's photography, print details, freediving techniques, or help you find the perfect piece for your space. How may I assist you?"
	FallbackText = "I apologize, but I seem to be having trouble reaching our archives at the moment."
)

// DefaultReplyTimeout bounds a single backend call unless overridden.
const DefaultReplyTimeout = 60 * time.Second

var errEmptyReply = errors.New("backend returned an empty reply")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type State string

const (
	StateIdle             State = "idle"
	StateAwaitingResponse State = "awaiting_response"
)

// Message is one transcript entry.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Turn is a transcript entry as sent to a backend.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Backend produces a reply to message given the prior transcript.
type Backend interface {
	Reply(ctx context.Context, history []Turn, message string) (string, error)
}

// Exchange describes one finished round trip.
type Exchange struct {
	SessionID string
	UserText  string
	Reply     string
	Backend   string
	Fallback  bool
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// Recorder receives every finished exchange, including fallbacks.
type Recorder interface {
	RecordExchange(ctx context.Context, ex Exchange)
}

// Snapshot is an immutable copy of the controller state.
type Snapshot struct {
	State    State     `json:"state"`
	Messages []Message `json:"messages"`
}

// Controller owns one visitor's transcript.
type Controller struct {
	backend     Backend
	backendName string
	recorder    Recorder
	sessionID   string
	timeout     time.Duration
	now         func() time.Time
	logger      *slog.Logger
	base        context.Context

	mu       sync.Mutex
	state    State
	messages []Message
	idle     chan struct{} // closed whenever state is idle
}

type Option func(*Controller)

// WithBackendName labels exchanges reported to the Recorder.
func WithBackendName(name string) Option { return func(c *Controller) { c.backendName = name } }

func WithRecorder(r Recorder) Option { return func(c *Controller) { c.recorder = r } }

func WithSessionID(id string) Option { return func(c *Controller) { c.sessionID = id } }

// WithTimeout bounds each backend call. Zero disables the bound.
func WithTimeout(d time.Duration) Option { return func(c *Controller) { c.timeout = d } }

func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.logger = l } }

// WithBaseContext sets the parent context of backend calls. It should outlive
// any single HTTP request; cancelling it fails the in-flight call.
func WithBaseContext(ctx context.Context) Option { return func(c *Controller) { c.base = ctx } }

// NewController returns an idle controller whose transcript holds the welcome
// message.
func NewController(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		timeout: DefaultReplyTimeout,
		now:     time.Now,
		logger:  slog.Default(),
		base:    context.Background(),
		state:   StateIdle,
	}
	for _, o := range opts {
		o(c)
	}
	c.idle = make(chan struct{})
	close(c.idle)
	c.messages = []Message{{
		ID:        uuid.New(),
		Role:      RoleAssistant,
		Text:      WelcomeText,
		Timestamp: c.now().UTC(),
	}}
	return c
}

// Send appends text as a user message and starts a backend call in the
// background. It returns false without touching the transcript when text is
// blank or a reply is still pending. The returned channel is closed once the
// reply (or the fallback) has been appended.
func (c *Controller) Send(text string) (<-chan struct{}, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	c.mu.Lock()
	if c.state == StateAwaitingResponse {
		c.mu.Unlock()
		return nil, false
	}
	history := turns(c.messages)
	c.messages = append(c.messages, Message{
		ID:        uuid.New(),
		Role:      RoleUser,
		Text:      text,
		Timestamp: c.stampLocked(),
	})
	c.state = StateAwaitingResponse
	done := make(chan struct{})
	c.idle = done
	c.mu.Unlock()

	go c.resolve(history, text, done)
	return done, true
}

func (c *Controller) resolve(history []Turn, text string, done chan struct{}) {
	started := c.now()
	ctx := c.base
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reply, err := c.call(ctx, history, text)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errEmptyReply
	}
	fallback := err != nil
	if fallback {
		c.logger.Warn("assistant reply failed, using fallback",
			"session_id", c.sessionID, "backend", c.backendName, "error", err)
		reply = FallbackText
	}

	c.mu.Lock()
	c.messages = append(c.messages, Message{
		ID:        uuid.New(),
		Role:      RoleAssistant,
		Text:      reply,
		Timestamp: c.stampLocked(),
	})
	c.state = StateIdle
	c.mu.Unlock()

	if c.recorder != nil {
		c.recorder.RecordExchange(context.WithoutCancel(ctx), Exchange{
			SessionID: c.sessionID,
			UserText:  text,
			Reply:     reply,
			Backend:   c.backendName,
			Fallback:  fallback,
			Err:       err,
			StartedAt: started,
			Duration:  c.now().Sub(started),
		})
	}
	close(done)
}

// call shields the controller from backend panics.
func (c *Controller) call(ctx context.Context, history []Turn, text string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()
	if c.backend == nil {
		return "", errors.New("no backend configured")
	}
	return c.backend.Reply(ctx, history, text)
}

// stampLocked returns the current time, raised to the last message's
// timestamp if the clock went backwards.
func (c *Controller) stampLocked() time.Time {
	t := c.now().UTC()
	if n := len(c.messages); n > 0 && t.Before(c.messages[n-1].Timestamp) {
		t = c.messages[n-1].Timestamp
	}
	return t
}

// State returns the current request state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Messages returns a copy of the transcript.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.messages)
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{State: c.state, Messages: slices.Clone(c.messages)}
}

// Wait blocks until no request is pending or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func turns(msgs []Message) []Turn {
	out := make([]Turn, len(msgs))
	for i, m := range msgs {
		out[i] = Turn{Role: m.Role, Text: m.Text}
	}
	return out
}
