// Package cache stores serialized operation results under string keys with
// a per-entry time to live.  Two backends exist: a bounded in-process LRU
// and Redis.  Values are JSON encoded so both behave the same way.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is the contract the orchestrator and the catalog client depend on.
// A Get never returns an entry past its TTL and Set always replaces.
type Store interface {
	// Get decodes the value under key into dst.
	Get(ctx context.Context, key string, dst any) error
	// Set stores v under key for ttl.
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	// Keys lists live keys in no particular order.
	Keys(ctx context.Context) ([]string, error)
	// Clear drops every entry owned by the store.
	Clear(ctx context.Context) error
	// Max is the configured capacity, reported by cache status.
	Max() int
}
