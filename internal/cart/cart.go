// Package cart holds the ordered list of prints a visitor has added.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/kalambet/underworlds/internal/catalog"
)

// ErrEmptyCart is returned by Checkout when there is nothing to hand off.
var ErrEmptyCart = errors.New("cart is empty")

// CheckoutHandler receives the cart contents when the visitor asks to check
// out. Implementations must not retain the snapshot's slices beyond the call
// unless they copy them.
type CheckoutHandler interface {
	Submit(ctx context.Context, snap Snapshot) error
}

// Line is one entry in a snapshot. Index is the position Remove expects.
type Line struct {
	Index     int              `json:"index"`
	ProductID string           `json:"product_id"`
	Name      string           `json:"name"`
	Price     int64            `json:"price"`
	Category  catalog.Category `json:"category"`
	Image     string           `json:"image"`
}

// Snapshot is an immutable view of the cart at one instant.
type Snapshot struct {
	Owner      string    `json:"owner,omitempty"`
	Items      []Line    `json:"items"`
	Count      int       `json:"count"`
	Total      int64     `json:"total"`
	CapturedAt time.Time `json:"captured_at"`
}

// Cart is safe for concurrent use. Duplicates are allowed; each Add appends
// a separate line.
type Cart struct {
	owner   string
	handler CheckoutHandler
	now     func() time.Time
	logger  *slog.Logger

	mu    sync.Mutex
	items []catalog.Product
}

type Option func(*Cart)

// WithOwner tags snapshots with the owning session id.
func WithOwner(id string) Option { return func(c *Cart) { c.owner = id } }

func WithCheckoutHandler(h CheckoutHandler) Option { return func(c *Cart) { c.handler = h } }

func WithClock(now func() time.Time) Option { return func(c *Cart) { c.now = now } }

func WithLogger(l *slog.Logger) Option { return func(c *Cart) { c.logger = l } }

func New(opts ...Option) *Cart {
	c := &Cart{now: time.Now, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Add appends a product to the end of the cart.
func (c *Cart) Add(p catalog.Product) {
	p.Features = slices.Clone(p.Features)
	p.Gallery = slices.Clone(p.Gallery)
	c.mu.Lock()
	c.items = append(c.items, p)
	c.mu.Unlock()
}

// Remove deletes the line at index, preserving the order of the rest.
// Out of range indices leave the cart unchanged and return false.
func (c *Cart) Remove(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.items) {
		return false
	}
	c.items = slices.Delete(c.items, index, index+1)
	return true
}

// Total is the sum of line prices, computed from the current lines.
func (c *Cart) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return total(c.items)
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []catalog.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Cart) snapshotLocked() Snapshot {
	lines := make([]Line, len(c.items))
	for i, p := range c.items {
		lines[i] = Line{
			Index:     i,
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Category:  p.Category,
			Image:     p.Image,
		}
	}
	return Snapshot{
		Owner:      c.owner,
		Items:      lines,
		Count:      len(lines),
		Total:      total(c.items),
		CapturedAt: c.now().UTC(),
	}
}

// Checkout hands the current contents to the checkout handler and returns
// what was submitted. The cart itself is left as is.
func (c *Cart) Checkout(ctx context.Context) (Snapshot, error) {
	snap := c.Snapshot()
	if snap.Count == 0 {
		return snap, ErrEmptyCart
	}
	if c.handler == nil {
		c.logger.Info("checkout requested with no handler configured", "owner", c.owner, "items", snap.Count, "total", snap.Total)
		return snap, nil
	}
	if err := c.handler.Submit(ctx, snap); err != nil {
		return snap, fmt.Errorf("submitting checkout: %w", err)
	}
	return snap, nil
}

func total(items []catalog.Product) int64 {
	var sum int64
	for _, p := range items {
		sum += p.Price
	}
	return sum
}
