// Package queue defines message payloads exchanged over the message broker
// and the RPC consumer that serves listing patterns from it.
package queue

// Request is the body of an RPC message.  Which fields matter depends on
// the pattern: "cinema*" patterns read ID, "cinemas" reads Location.
type Request struct {
	ID       string `json:"id,omitempty"`
	Location string `json:"location,omitempty"`
}

// ListingsRefreshedEvent is published after a full refresh.  It carries
// enough for downstream consumers to log or warm their own caches without
// querying the catalog store.
type ListingsRefreshedEvent struct {
	EventID      string   `json:"event_id"`
	Status       string   `json:"status"`
	Venues       []string `json:"venues"`
	FailedVenues []string `json:"failed_venues,omitempty"`
	Shows        int      `json:"shows"`
	Enriched     int      `json:"enriched"`
	RefreshedAt  string   `json:"refreshed_at"`
}
