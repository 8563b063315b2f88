// Package imageurl maps stable image identifiers to fetchable URLs.
//
// With no CDN configured the local attachments path is used. With a CDN base
// the identifier is appended to it, optionally behind a /cdn-cgi/image/
// transform segment.
package imageurl

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// LocalPrefix is where the site serves bundled images in development.
	LocalPrefix = "/attachments"

	transformSegment = "cdn-cgi/image"
)

var (
	validFormats = map[string]bool{"auto": true, "webp": true, "avif": true, "jpeg": true, "png": true}
	validFits    = map[string]bool{"scale-down": true, "contain": true, "cover": true, "crop": true, "pad": true}
)

// ErrInvalidOption is returned by Options.Validate.
var ErrInvalidOption = errors.New("invalid image option")

// Options are optional CDN transform hints. Zero values mean "unset".
type Options struct {
	Width   int
	Height  int
	Quality int
	Format  string
	Fit     string
}

// Validate reports the first option that Resolve would clamp or drop.
func (o Options) Validate() error {
	switch {
	case o.Width < 0:
		return fmt.Errorf("%w: width %d", ErrInvalidOption, o.Width)
	case o.Height < 0:
		return fmt.Errorf("%w: height %d", ErrInvalidOption, o.Height)
	case o.Quality < 0 || o.Quality > 100:
		return fmt.Errorf("%w: quality %d (want 1-100)", ErrInvalidOption, o.Quality)
	case o.Format != "" && !validFormats[o.Format]:
		return fmt.Errorf("%w: format %q", ErrInvalidOption, o.Format)
	case o.Fit != "" && !validFits[o.Fit]:
		return fmt.Errorf("%w: fit %q", ErrInvalidOption, o.Fit)
	}
	return nil
}

// segment renders the comma-separated transform list, or "" when nothing is set.
func (o Options) segment() string {
	var parts []string
	if o.Width > 0 {
		parts = append(parts, "width="+strconv.Itoa(o.Width))
	}
	if o.Height > 0 {
		parts = append(parts, "height="+strconv.Itoa(o.Height))
	}
	if o.Quality != 0 {
		q := min(max(o.Quality, 1), 100)
		parts = append(parts, "quality="+strconv.Itoa(q))
	}
	if validFormats[o.Format] {
		parts = append(parts, "format="+o.Format)
	}
	if validFits[o.Fit] {
		parts = append(parts, "fit="+o.Fit)
	}
	return strings.Join(parts, ",")
}

// Resolver is immutable after New and safe for concurrent use.
type Resolver struct {
	baseURL string
}

// New returns a Resolver for the given CDN base. An empty base selects the
// local attachments path.
func New(baseURL string) *Resolver {
	return &Resolver{baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

// BaseURL returns the configured CDN base, or "" in local mode.
func (r *Resolver) BaseURL() string {
	return r.baseURL
}

// URL resolves id with no transforms.
func (r *Resolver) URL(id string) string {
	return r.Resolve(id, Options{})
}

// Resolve returns the URL for id. Transform options are ignored in local mode.
func (r *Resolver) Resolve(id string, opts Options) string {
	clean := escapePath(strings.TrimPrefix(id, "/"))
	if r.baseURL == "" {
		return LocalPrefix + "/" + clean
	}
	if seg := opts.segment(); seg != "" {
		return r.baseURL + "/" + transformSegment + "/" + seg + "/" + clean
	}
	return r.baseURL + "/" + clean
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
