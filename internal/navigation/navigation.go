// Package navigation tracks which view and on-page section a visitor is
// looking at, plus the set of overlays drawn over it.
package navigation

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/kalambet/underworlds/internal/catalog"
)

// HeaderOffset is the sticky header height subtracted from anchor scrolls.
const HeaderOffset = 85

// Kind is the active variant of the base view.
type Kind string

const (
	KindHome     Kind = "home"
	KindProduct  Kind = "product"
	KindJournal  Kind = "journal"
	KindCheckout Kind = "checkout"
)

// Section is an on-page anchor of the home view.
type Section string

const (
	SectionTop      Section = ""
	SectionProducts Section = "products"
	SectionAbout    Section = "about"
	SectionJournal  Section = "journal"
)

var sections = []Section{SectionTop, SectionProducts, SectionAbout, SectionJournal}

// ParseSection reports whether s names a known section.
func ParseSection(s string) (Section, bool) {
	sec := Section(s)
	if !slices.Contains(sections, sec) {
		return "", false
	}
	return sec, true
}

// Overlay is a panel drawn over the base view.
type Overlay string

const (
	OverlayCart      Overlay = "cart"
	OverlayProduct   Overlay = "product"
	OverlayAssistant Overlay = "assistant"
	OverlayMenu      Overlay = "menu"
)

var overlays = []Overlay{OverlayCart, OverlayProduct, OverlayAssistant, OverlayMenu}

func ParseOverlay(s string) (Overlay, bool) {
	o := Overlay(s)
	if !slices.Contains(overlays, o) {
		return "", false
	}
	return o, true
}

// View is the base view. Product is set only for KindProduct, Article only
// for KindJournal.
type View struct {
	Kind    Kind             `json:"kind"`
	Product *catalog.Product `json:"product,omitempty"`
	Article *catalog.Article `json:"article,omitempty"`
}

// Scroller performs a smooth scroll to an anchor. An empty anchor means the
// top of the page.
type Scroller interface {
	ScrollTo(anchor string, offset int)
}

// History updates the shareable URL fragment without a reload. It may fail in
// sandboxed environments.
type History interface {
	PushFragment(fragment string) error
}

// Snapshot is an immutable copy of the controller state.
type Snapshot struct {
	View     View      `json:"view"`
	Section  Section   `json:"section"`
	Overlays []Overlay `json:"overlays"`
}

// Controller owns the view state of one visitor. All methods are safe for
// concurrent use.
type Controller struct {
	catalog  *catalog.Catalog
	scroller Scroller
	history  History
	logger   *slog.Logger

	mu      sync.Mutex
	view    View
	section Section
	open    map[Overlay]bool
}

// Option configures a Controller.
type Option func(*Controller)

func WithScroller(s Scroller) Option { return func(c *Controller) { c.scroller = s } }

func WithHistory(h History) Option { return func(c *Controller) { c.history = h } }

func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.logger = l } }

// NewController returns a controller on the home view with no overlays open.
func NewController(cat *catalog.Catalog, opts ...Option) *Controller {
	c := &Controller{
		catalog: cat,
		logger:  slog.Default(),
		view:    View{Kind: KindHome},
		open:    make(map[Overlay]bool),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NavigateTo switches to the home view at the given section, scrolls there and
// pushes the URL fragment. Unknown sections are ignored and return false.
// Navigating to the current section scrolls again.
func (c *Controller) NavigateTo(target string) bool {
	sec, ok := ParseSection(target)
	if !ok {
		return false
	}

	c.mu.Lock()
	c.view = View{Kind: KindHome}
	c.section = sec
	delete(c.open, OverlayMenu)
	c.mu.Unlock()

	offset := HeaderOffset
	if sec == SectionTop {
		offset = 0
	}
	c.scroll(string(sec), offset)
	if c.history != nil {
		if err := c.history.PushFragment("#" + string(sec)); err != nil {
			c.logger.Debug("url fragment update skipped", "fragment", sec, "error", err)
		}
	}
	return true
}

// OpenProduct shows the detail view of a product. Unknown ids are ignored.
func (c *Controller) OpenProduct(id string) bool {
	p, ok := c.catalog.Product(id)
	if !ok {
		return false
	}
	c.setView(View{Kind: KindProduct, Product: &p})
	return true
}

// OpenArticle shows a journal entry. Unknown ids are ignored.
func (c *Controller) OpenArticle(id int) bool {
	a, ok := c.catalog.Article(id)
	if !ok {
		return false
	}
	c.setView(View{Kind: KindJournal, Article: &a})
	return true
}

func (c *Controller) OpenCheckout() bool {
	c.setView(View{Kind: KindCheckout})
	return true
}

// GoHome returns to the home view, keeping the last section.
func (c *Controller) GoHome() bool {
	c.mu.Lock()
	c.view = View{Kind: KindHome}
	c.mu.Unlock()
	return true
}

func (c *Controller) setView(v View) {
	c.mu.Lock()
	c.view = v
	// Detail pages cover the whole screen.
	delete(c.open, OverlayCart)
	delete(c.open, OverlayProduct)
	delete(c.open, OverlayMenu)
	c.mu.Unlock()
	c.scroll("", 0)
}

func (c *Controller) scroll(anchor string, offset int) {
	if c.scroller != nil {
		c.scroller.ScrollTo(anchor, offset)
	}
}

// OpenOverlay shows an overlay without touching the base view.
func (c *Controller) OpenOverlay(kind Overlay) bool {
	if !slices.Contains(overlays, kind) {
		return false
	}
	c.mu.Lock()
	c.open[kind] = true
	c.mu.Unlock()
	return true
}

// CloseOverlay hides one overlay. Closing an overlay that is not open is a
// no-op that still returns true.
func (c *Controller) CloseOverlay(kind Overlay) bool {
	if !slices.Contains(overlays, kind) {
		return false
	}
	c.mu.Lock()
	delete(c.open, kind)
	c.mu.Unlock()
	return true
}

func (c *Controller) CloseAllOverlays() {
	c.mu.Lock()
	clear(c.open)
	c.mu.Unlock()
}

// IsOpen reports whether an overlay is currently shown.
func (c *Controller) IsOpen(kind Overlay) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open[kind]
}

// Snapshot returns a copy of the current state with overlays sorted.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{View: c.view, Section: c.section, Overlays: make([]Overlay, 0, len(c.open))}
	if c.view.Product != nil {
		p := *c.view.Product
		p.Features = slices.Clone(p.Features)
		p.Gallery = slices.Clone(p.Gallery)
		s.View.Product = &p
	}
	if c.view.Article != nil {
		a := *c.view.Article
		a.Body = slices.Clone(a.Body)
		s.View.Article = &a
	}
	for o := range c.open {
		s.Overlays = append(s.Overlays, o)
	}
	slices.Sort(s.Overlays)
	return s
}
