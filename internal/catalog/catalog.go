package catalog

import (
	"fmt"
	"slices"
)

const (
	BrandName        = "Underworlds"
	PhotographerName = "Alejandro Gutierrez"
)

// Category is the collection a photograph belongs to. The set is closed.
type Category string

const (
	LimitedEdition Category = "Limited Edition"
	FineArt        Category = "Fine Art"
	Wildlife       Category = "Wildlife"
	Landscapes     Category = "Landscapes"
)

// Categories lists every valid category in display order.
var Categories = []Category{LimitedEdition, FineArt, Wildlife, Landscapes}

func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// Product is one photograph in the portfolio.
type Product struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Tagline         string   `json:"tagline"`
	Description     string   `json:"description"`
	LongDescription string   `json:"long_description,omitempty"`
	Price           int64    `json:"price"` // cents; 0 means portfolio only
	Category        Category `json:"category"`
	Image           string   `json:"image"`
	Gallery         []string `json:"gallery,omitempty"`
	Features        []string `json:"features"`
}

// ForSale reports whether the photograph has a nonzero print price.
func (p Product) ForSale() bool {
	return p.Price > 0
}

// Block is one rendered unit of an article body.
type Block struct {
	Kind  string   `json:"kind"` // "paragraph", "quote" or "verse"
	Lines []string `json:"lines"`
}

// Article is a journal story.
type Article struct {
	ID      int     `json:"id"`
	Title   string  `json:"title"`
	Date    string  `json:"date"`
	Excerpt string  `json:"excerpt"`
	Image   string  `json:"image"`
	Body    []Block `json:"body"`
}

// Catalog is the read-only table of products and articles loaded at startup.
// Nothing mutates it after New returns; accessors hand out copies.
type Catalog struct {
	products []Product
	articles []Article
	byID     map[string]int
	byArt    map[int]int
}

// New builds a Catalog, rejecting duplicate ids and unknown categories.
func New(products []Product, articles []Article) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		articles: make([]Article, 0, len(articles)),
		byID:     make(map[string]int, len(products)),
		byArt:    make(map[int]int, len(articles)),
	}
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("product %q: empty id", p.Name)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		if !p.Category.Valid() {
			return nil, fmt.Errorf("product %s: unknown category %q", p.ID, p.Category)
		}
		if p.Price < 0 {
			return nil, fmt.Errorf("product %s: negative price", p.ID)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, cloneProduct(p))
	}
	for _, a := range articles {
		if _, dup := c.byArt[a.ID]; dup {
			return nil, fmt.Errorf("duplicate article id %d", a.ID)
		}
		c.byArt[a.ID] = len(c.articles)
		c.articles = append(c.articles, cloneArticle(a))
	}
	return c, nil
}

// Products returns all products in catalog order.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	for i, p := range c.products {
		out[i] = cloneProduct(p)
	}
	return out
}

// Product looks up a product by id.
func (c *Catalog) Product(id string) (Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return cloneProduct(c.products[i]), true
}

func (c *Catalog) ProductsByCategory(cat Category) []Product {
	var out []Product
	for _, p := range c.products {
		if p.Category == cat {
			out = append(out, cloneProduct(p))
		}
	}
	return out
}

// Articles returns all journal articles in catalog order.
func (c *Catalog) Articles() []Article {
	out := make([]Article, len(c.articles))
	for i, a := range c.articles {
		out[i] = cloneArticle(a)
	}
	return out
}

func (c *Catalog) Article(id int) (Article, bool) {
	i, ok := c.byArt[id]
	if !ok {
		return Article{}, false
	}
	return cloneArticle(c.articles[i]), true
}

func cloneProduct(p Product) Product {
	p.Gallery = slices.Clone(p.Gallery)
	p.Features = slices.Clone(p.Features)
	return p
}

func cloneArticle(a Article) Article {
	body := make([]Block, len(a.Body))
	for i, b := range a.Body {
		body[i] = Block{Kind: b.Kind, Lines: slices.Clone(b.Lines)}
	}
	a.Body = body
	return a
}
