// Package scraper turns cinema websites into normalized model.Show records.
//
// Each supported site family has a hand-written Adapter; a Registry maps the
// family tag stored on a venue to its adapter.  Adapters tolerate per-item
// failures (a broken detail page drops or degrades one show and is logged)
// but report venue-level failures as *FetchError or *ParseError.
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/iliyamo/cartelera/internal/model"
)

// Adapter fetches and normalizes the current listing of one venue.
type Adapter interface {
	FetchShows(ctx context.Context, venue model.Venue) ([]model.Show, error)
}

// Registry dispatches venues to adapters by family tag.
type Registry map[string]Adapter

// NewRegistry wires every built-in family to a shared fetcher.
func NewRegistry(f *Fetcher, log *zap.Logger) Registry {
	return Registry{
		model.FamilyListing:  NewListing(f, log),
		model.FamilyJSONFeed: NewJSONFeed(f, log),
		model.FamilyCardGrid: NewCardGrid(f, log),
	}
}

// For returns the adapter registered for family.
func (r Registry) For(family string) (Adapter, bool) {
	a, ok := r[family]
	return a, ok
}

// FetchError reports that a page or feed could not be retrieved.
type FetchError struct {
	URL        string
	StatusCode int // zero for transport errors
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports that a retrieved page lacks the structure its adapter
// relies on.
type ParseError struct {
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.URL, e.Reason)
}

// collect maps every element of sel, in document order, keeping the values
// fn accepts.
func collect[T any](sel *goquery.Selection, fn func(*goquery.Selection) (T, bool)) []T {
	out := make([]T, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		if v, ok := fn(s); ok {
			out = append(out, v)
		}
	})
	return out
}

// text returns the selection's text with whitespace runs collapsed.
func text(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// resolve makes href absolute against base.  Blank or unparsable hrefs
// resolve to "".
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func uniq(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func people(names []string) []model.Person {
	if len(names) == 0 {
		return nil
	}
	out := make([]model.Person, 0, len(names))
	for _, n := range names {
		out = append(out, model.Person{Name: n})
	}
	return out
}

func person(name string) *model.Person {
	if name = strings.TrimSpace(name); name == "" {
		return nil
	}
	return &model.Person{Name: name}
}

// clock pads "9:05" to "09:05".
func clock(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 4 && s[1] == ':' {
		return "0" + s
	}
	return s
}
