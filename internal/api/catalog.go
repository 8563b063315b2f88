package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/underworlds/internal/catalog"
	"github.com/kalambet/underworlds/internal/imageurl"
)

type productView struct {
	catalog.Product
	ImageURL string `json:"image_url"`
}

type articleView struct {
	catalog.Article
	ImageURL string `json:"image_url"`
}

func handleListProducts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products := deps.Catalog.Products()
		if c := r.URL.Query().Get("category"); c != "" {
			cat := catalog.Category(c)
			if !cat.Valid() {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown category %q", c)
				return
			}
			products = deps.Catalog.ProductsByCategory(cat)
		}

		out := make([]productView, len(products))
		for i, p := range products {
			out[i] = productView{Product: p, ImageURL: deps.Images.URL(p.Image)}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGetProduct(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		p, ok := deps.Catalog.Product(id)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "product %q not found", id)
			return
		}
		writeJSON(w, http.StatusOK, productView{Product: p, ImageURL: deps.Images.URL(p.Image)})
	}
}

func handleListArticles(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		articles := deps.Catalog.Articles()
		out := make([]articleView, len(articles))
		for i, a := range articles {
			out[i] = articleView{Article: a, ImageURL: deps.Images.URL(a.Image)}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleGetArticle(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "id")
		id, err := strconv.Atoi(raw)
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "article %q not found", raw)
			return
		}
		a, ok := deps.Catalog.Article(id)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "article %d not found", id)
			return
		}
		writeJSON(w, http.StatusOK, articleView{Article: a, ImageURL: deps.Images.URL(a.Image)})
	}
}

// handleImage redirects to the resolved image URL. Transform hints come from
// the w, h, q, format and fit query parameters.
func handleImage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "*")
		if id == "" {
			httpError(w, http.StatusNotFound, "not_found", "image id is required")
			return
		}

		q := r.URL.Query()
		opts := imageurl.Options{Format: q.Get("format"), Fit: q.Get("fit")}
		ints := []struct {
			key string
			dst *int
		}{{"w", &opts.Width}, {"h", &opts.Height}, {"q", &opts.Quality}}
		for _, p := range ints {
			s := q.Get(p.key)
			if s == "" {
				continue
			}
			v, err := strconv.Atoi(s)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%s must be an integer", p.key)
				return
			}
			*p.dst = v
		}
		if err := opts.Validate(); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		http.Redirect(w, r, deps.Images.Resolve(id, opts), http.StatusFound)
	}
}
