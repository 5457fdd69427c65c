package tmdb

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cartelera/internal/cache"
)

// Cached memoizes catalog lookups in a cache.Store.  Catalog data changes
// rarely, so entries live for the long TTL class.  Cache failures are
// logged and fall through to the wrapped catalog.
type Cached struct {
	next  Catalog
	store cache.Store
	ttl   time.Duration
	log   *zap.Logger
}

var _ Catalog = (*Cached)(nil)

// NewCached wraps next.
func NewCached(next Catalog, store cache.Store, ttl time.Duration, log *zap.Logger) *Cached {
	return &Cached{next: next, store: store, ttl: ttl, log: log.With(zap.String("component", "tmdb-cache"))}
}

// Configuration implements Catalog.
func (c *Cached) Configuration(ctx context.Context) (*Configuration, error) {
	return remember(ctx, c, "themoviedb/configuration", func() (*Configuration, error) {
		return c.next.Configuration(ctx)
	})
}

// SearchMovie implements Catalog.
func (c *Cached) SearchMovie(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error) {
	key := "themoviedb/search/" + query
	if opts.Year > 0 {
		key += "?year=" + strconv.Itoa(opts.Year)
	}
	return remember(ctx, c, key, func() (*SearchResponse, error) {
		return c.next.SearchMovie(ctx, query, opts)
	})
}

// Movie implements Catalog.
func (c *Cached) Movie(ctx context.Context, id int64) (*Movie, error) {
	return remember(ctx, c, "themoviedb/movie/"+strconv.FormatInt(id, 10), func() (*Movie, error) {
		return c.next.Movie(ctx, id)
	})
}

// Credits implements Catalog.
func (c *Cached) Credits(ctx context.Context, id int64) (*Credits, error) {
	return remember(ctx, c, "themoviedb/movie/"+strconv.FormatInt(id, 10)+"/credits", func() (*Credits, error) {
		return c.next.Credits(ctx, id)
	})
}

// Videos implements Catalog.
func (c *Cached) Videos(ctx context.Context, id int64) (*Videos, error) {
	return remember(ctx, c, "themoviedb/movie/"+strconv.FormatInt(id, 10)+"/videos", func() (*Videos, error) {
		return c.next.Videos(ctx, id)
	})
}

func remember[T any](ctx context.Context, c *Cached, key string, load func() (*T, error)) (*T, error) {
	var hit T
	err := c.store.Get(ctx, key, &hit)
	if err == nil {
		return &hit, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	v, err := load()
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, v, c.ttl); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}
