package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry struct {
	payload []byte
	expires time.Time
}

// Memory is a process-local Store bounded to max entries; the least
// recently used entry is evicted first.
type Memory struct {
	lru *lru.Cache[string, entry]
	max int
	now func() time.Time
}

// NewMemory builds a Memory store holding at most max entries.
func NewMemory(max int) (*Memory, error) {
	c, err := lru.New[string, entry](max)
	if err != nil {
		return nil, fmt.Errorf("memory cache: %w", err)
	}
	return &Memory{lru: c, max: max, now: time.Now}, nil
}

// Get implements Store.  An entry is served up to and including its expiry
// instant and dropped strictly after it.
func (m *Memory) Get(_ context.Context, key string, dst any) error {
	e, ok := m.lru.Get(key)
	if !ok {
		return ErrMiss
	}
	if m.now().After(e.expires) {
		m.lru.Remove(key)
		return ErrMiss
	}
	return json.Unmarshal(e.payload, dst)
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key string, v any, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	m.lru.Add(key, entry{payload: payload, expires: m.now().Add(ttl)})
	return nil
}

// Keys implements Store, pruning expired entries on the way.
func (m *Memory) Keys(_ context.Context) ([]string, error) {
	now := m.now()
	keys := m.lru.Keys()
	live := keys[:0]
	for _, k := range keys {
		e, ok := m.lru.Peek(k)
		if !ok {
			continue
		}
		if now.After(e.expires) {
			m.lru.Remove(k)
			continue
		}
		live = append(live, k)
	}
	return live, nil
}

// Clear implements Store.
func (m *Memory) Clear(context.Context) error {
	m.lru.Purge()
	return nil
}

// Max implements Store.
func (m *Memory) Max() int { return m.max }
