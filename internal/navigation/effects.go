package navigation

import "sync"

// Effect is a browser side effect for the rendering client to apply.
type Effect struct {
	Type     string `json:"type"` // "scroll" or "push_fragment"
	Anchor   string `json:"anchor,omitempty"`
	Offset   int    `json:"offset,omitempty"`
	Fragment string `json:"fragment,omitempty"`
}

// EffectLog records scroll and history calls so they can be returned with the
// HTTP response that caused them.
type EffectLog struct {
	mu      sync.Mutex
	pending []Effect
}

func NewEffectLog() *EffectLog {
	return &EffectLog{}
}

func (l *EffectLog) ScrollTo(anchor string, offset int) {
	l.mu.Lock()
	l.pending = append(l.pending, Effect{Type: "scroll", Anchor: anchor, Offset: offset})
	l.mu.Unlock()
}

func (l *EffectLog) PushFragment(fragment string) error {
	l.mu.Lock()
	l.pending = append(l.pending, Effect{Type: "push_fragment", Fragment: fragment})
	l.mu.Unlock()
	return nil
}

// Drain returns the recorded effects in order and clears the log.
func (l *EffectLog) Drain() []Effect {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.pending
	l.pending = nil
	if out == nil {
		out = []Effect{}
	}
	return out
}
