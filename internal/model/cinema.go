package model

import "time"

// Family tags select which source adapter knows how to read a venue's site.
const (
	FamilyListing  = "listing"
	FamilyJSONFeed = "jsonfeed"
	FamilyCardGrid = "cardgrid"
)

// Venue represents a cinema whose showtimes are scraped from a public site.
// Venues come from the static registry seed or from the provider directory
// and are never mutated in place: a refresh replaces the whole value.
//
// Fields:
//
//	ID       – stable registry identifier (e.g. "palafox").
//	Name     – display name.
//	Address  – street address.
//	Location – city, used by the location filter.
//	Website  – the venue's own homepage.
//	Source   – page or feed the adapter reads.
//	Family   – adapter family tag.
type Venue struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Location string `json:"location,omitempty"`
	Website  string `json:"website,omitempty"`
	Source   string `json:"source"`
	Family   string `json:"family"`
}

// Listing is a venue together with its freshly scraped shows.
type Listing struct {
	Venue
	LastUpdated time.Time `json:"lastUpdated"`
	Shows       []Show    `json:"shows"`
}

// EnrichedListing is a Listing whose shows went through the reconciler.
type EnrichedListing struct {
	Venue
	LastUpdated time.Time      `json:"lastUpdated"`
	Shows       []EnrichedShow `json:"shows"`
}

// ShowIDs returns the ids of the listing's shows in listing order.
func (l Listing) ShowIDs() []string {
	ids := make([]string, 0, len(l.Shows))
	for _, s := range l.Shows {
		ids = append(ids, s.ID)
	}
	return ids
}

// SessionsByShow groups the listing's sessions by show id, the layout the
// venue row persists.
func (l Listing) SessionsByShow() map[string][]Session {
	out := make(map[string][]Session, len(l.Shows))
	for _, s := range l.Shows {
		out[s.ID] = append(out[s.ID], s.Sessions...)
	}
	return out
}
