// Package registry keeps the set of known venues.  It starts from a static
// seed and absorbs venues discovered by the provider directory.
package registry

import (
	"net/url"
	"strings"
	"sync"

	"github.com/iliyamo/cartelera/internal/model"
)

// Seed is a statically known venue.  Aliases lists other pages that
// identify the same venue (e.g. its ticketing-provider page) so directory
// entries pointing there merge into the seed instead of duplicating it.
type Seed struct {
	model.Venue
	Aliases []string
}

// Registry is safe for concurrent use.  Venues keep insertion order.
type Registry struct {
	mu     sync.RWMutex
	venues map[string]model.Venue
	order  []string
	bySrc  map[string]string // normalized source or alias -> id
}

// New builds a registry from seeds.
func New(seeds []Seed) *Registry {
	r := &Registry{
		venues: make(map[string]model.Venue, len(seeds)),
		bySrc:  make(map[string]string, len(seeds)*2),
	}
	for _, s := range seeds {
		r.put(s.Venue)
		for _, a := range s.Aliases {
			r.bySrc[normalizeURL(a)] = s.ID
		}
	}
	return r
}

// All returns every venue in registry order.
func (r *Registry) All() []model.Venue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Venue, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.venues[id])
	}
	return out
}

// Get looks a venue up by id.
func (r *Registry) Get(id string) (model.Venue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.venues[id]
	return v, ok
}

// MergeResult reports what Merge changed.
type MergeResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Merge folds discovered venues into the registry.  A venue whose source
// (or a seed alias) is already known refreshes that entry's name, address
// and location but keeps its id, family and source.  Unknown venues are
// added unless their id is taken by a different venue.
func (r *Registry) Merge(found []model.Venue) MergeResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res MergeResult
	for _, v := range found {
		if v.ID == "" || v.Source == "" {
			res.Skipped++
			continue
		}
		if id, ok := r.bySrc[normalizeURL(v.Source)]; ok {
			cur := r.venues[id]
			if v.Name != "" {
				cur.Name = v.Name
			}
			if v.Address != "" {
				cur.Address = v.Address
			}
			if v.Location != "" {
				cur.Location = v.Location
			}
			r.venues[id] = cur
			res.Updated++
			continue
		}
		if _, taken := r.venues[v.ID]; taken {
			res.Skipped++
			continue
		}
		r.put(v)
		res.Added++
	}
	return res
}

func (r *Registry) put(v model.Venue) {
	if _, ok := r.venues[v.ID]; !ok {
		r.order = append(r.order, v.ID)
	}
	r.venues[v.ID] = v
	r.bySrc[normalizeURL(v.Source)] = v.ID
}

// normalizeURL compares pages by host and path, ignoring scheme, case of
// the host, "www." and trailing slashes.
func normalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.ToLower(raw), "/")
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	return host + strings.TrimRight(u.Path, "/")
}
