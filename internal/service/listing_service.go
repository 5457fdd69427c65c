// Package service holds the cache and refresh orchestrator.  It resolves a
// venue, runs its source adapter on a cache miss, optionally reconciles the
// shows against the movie catalog, then caches and persists the result.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cartelera/internal/cache"
	"github.com/iliyamo/cartelera/internal/model"
	"github.com/iliyamo/cartelera/internal/queue"
	"github.com/iliyamo/cartelera/internal/reconcile"
	"github.com/iliyamo/cartelera/internal/registry"
	"github.com/iliyamo/cartelera/internal/repository"
	"github.com/iliyamo/cartelera/internal/scraper"
)

// Adapters resolves the adapter for a venue family.
type Adapters interface {
	For(family string) (scraper.Adapter, bool)
}

// Directory lists the venues known to the ticketing provider.
type Directory interface {
	FetchVenues(ctx context.Context, directoryURL string) ([]model.Venue, error)
}

// Reconciler enriches shows with catalog metadata.
type Reconciler interface {
	ReconcileAll(ctx context.Context, shows []model.Show) ([]model.EnrichedShow, reconcile.Summary)
}

// VenueStore persists venue rows.
type VenueStore interface {
	UpsertVenues(ctx context.Context, venues []model.Venue) error
	UpsertListing(ctx context.Context, l model.Listing) error
	GetByID(ctx context.Context, id string) (*repository.StoredVenue, error)
}

// ShowStore persists show rows.
type ShowStore interface {
	UpsertShows(ctx context.Context, shows []model.Show) error
	UpsertEnrichedShows(ctx context.Context, shows []model.EnrichedShow) error
}

// Publisher announces completed refreshes.
type Publisher interface {
	PublishListingsRefreshed(ctx context.Context, ev queue.ListingsRefreshedEvent) error
}

// Deps are the collaborators of a ListingService.  Venues, Shows, Directory
// and Publisher are optional.
type Deps struct {
	Registry   *registry.Registry
	Adapters   Adapters
	Reconciler Reconciler
	Cache      cache.Store
	Directory  Directory
	Venues     VenueStore
	Shows      ShowStore
	Publisher  Publisher
}

// Options tunes caching and refresh fan-out.
type Options struct {
	ShortTTL     time.Duration
	DirectoryURL string
	Parallelism  int
}

// ListingService implements every exposed operation.  It is safe for
// concurrent use; concurrent misses on one key each fetch and the last
// write wins.
type ListingService struct {
	Deps
	opts Options
	log  *zap.Logger
	now  func() time.Time
}

// NewListingService wires a ListingService.
func NewListingService(deps Deps, opts Options, log *zap.Logger) *ListingService {
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	return &ListingService{
		Deps: deps,
		opts: opts,
		log:  log.With(zap.String("component", "listings")),
		now:  time.Now,
	}
}

// ListVenues returns all registry venues, or those whose location matches
// any of the comma-separated filters (case-insensitively).
func (s *ListingService) ListVenues(ctx context.Context, location string) ([]model.Venue, error) {
	filters := locationFilters(location)
	key := venuesKey(filters)

	var cached []model.Venue
	if s.cached(ctx, key, &cached) {
		return cached, nil
	}

	all := s.Registry.All()
	out := make([]model.Venue, 0, len(all))
	for _, v := range all {
		if len(filters) == 0 || containsFold(filters, v.Location) {
			out = append(out, v)
		}
	}
	s.store(ctx, key, out, s.opts.ShortTTL)
	return out, nil
}

// GetVenue returns a venue from the registry, falling back to the catalog
// store for venues only known from earlier runs.
func (s *ListingService) GetVenue(ctx context.Context, id string) (model.Venue, error) {
	if id == "" {
		return model.Venue{}, &InvalidRequestError{Reason: "id is required"}
	}
	if v, ok := s.Registry.Get(id); ok {
		return v, nil
	}
	if s.Venues != nil {
		stored, err := s.Venues.GetByID(ctx, id)
		switch {
		case err == nil:
			return stored.Venue, nil
		case !errors.Is(err, repository.ErrVenueNotFound):
			return model.Venue{}, err
		}
	}
	return model.Venue{}, &NotFoundError{ID: id}
}

// GetShows returns the venue's current listing.
func (s *ListingService) GetShows(ctx context.Context, id string) (model.Listing, error) {
	venue, ok := s.Registry.Get(id)
	if !ok {
		if id == "" {
			return model.Listing{}, &InvalidRequestError{Reason: "id is required"}
		}
		return model.Listing{}, &NotFoundError{ID: id}
	}

	key := "cinema/" + id
	var cached model.Listing
	if s.cached(ctx, key, &cached) {
		return cached, nil
	}

	listing, err := s.scrape(ctx, venue)
	if err != nil {
		return model.Listing{}, err
	}
	s.persistListing(ctx, listing)
	s.store(ctx, key, listing, s.opts.ShortTTL)
	return listing, nil
}

// GetEnrichedShows returns the venue's listing with every show reconciled
// against the movie catalog.
func (s *ListingService) GetEnrichedShows(ctx context.Context, id string) (model.EnrichedListing, error) {
	key := "cinema/" + id + "/pro"
	var cached model.EnrichedListing
	if _, ok := s.Registry.Get(id); ok && s.cached(ctx, key, &cached) {
		return cached, nil
	}

	listing, err := s.GetShows(ctx, id)
	if err != nil {
		return model.EnrichedListing{}, err
	}
	shows, sum := s.Reconciler.ReconcileAll(ctx, listing.Shows)
	s.log.Info("listing enriched",
		zap.String("venue", id), zap.Int("matched", sum.Matched), zap.Int("missed", sum.Missed), zap.Int("failed", sum.Failed))

	enriched := model.EnrichedListing{Venue: listing.Venue, LastUpdated: listing.LastUpdated, Shows: shows}
	if s.Shows != nil {
		if err := s.Shows.UpsertEnrichedShows(ctx, shows); err != nil {
			s.log.Error("persist enriched shows failed", zap.String("venue", id), zap.Error(err))
		}
	}
	s.store(ctx, key, enriched, s.opts.ShortTTL)
	return enriched, nil
}

// CacheStatus describes the cache contents.
type CacheStatus struct {
	Keys  []string `json:"keys"`
	Count string   `json:"count"`
}

// CacheStatus lists the live cache keys, sorted, with a "count/max" gauge.
func (s *ListingService) CacheStatus(ctx context.Context) (CacheStatus, error) {
	keys, err := s.Cache.Keys(ctx)
	if err != nil {
		return CacheStatus{}, err
	}
	slices.Sort(keys)
	if keys == nil {
		keys = []string{}
	}
	return CacheStatus{Keys: keys, Count: fmt.Sprintf("%d/%d", len(keys), s.Cache.Max())}, nil
}

// scrape runs the venue's adapter and stamps the result.
func (s *ListingService) scrape(ctx context.Context, venue model.Venue) (model.Listing, error) {
	adapter, ok := s.Adapters.For(venue.Family)
	if !ok {
		return model.Listing{}, fmt.Errorf("venue %s: no adapter for family %q", venue.ID, venue.Family)
	}
	shows, err := adapter.FetchShows(ctx, venue)
	if err == nil && len(shows) == 0 {
		err = ErrEmptyListing
	}
	if err != nil {
		s.log.Error("scrape failed",
			zap.String("venue", venue.ID), zap.String("family", venue.Family),
			zap.String("kind", errorKind(err)), zap.Error(err))
		return model.Listing{}, fmt.Errorf("venue %s: %w", venue.ID, err)
	}
	return model.Listing{Venue: venue, LastUpdated: s.now().UTC(), Shows: shows}, nil
}

func (s *ListingService) persistListing(ctx context.Context, l model.Listing) {
	if s.Venues != nil {
		if err := s.Venues.UpsertListing(ctx, l); err != nil {
			s.log.Error("persist venue failed", zap.String("venue", l.ID), zap.Error(err))
		}
	}
	if s.Shows != nil {
		if err := s.Shows.UpsertShows(ctx, l.Shows); err != nil {
			s.log.Error("persist shows failed", zap.String("venue", l.ID), zap.Error(err))
		}
	}
}

// cached reads key into dst.  Backend errors are logged and treated as a
// miss.
func (s *ListingService) cached(ctx context.Context, key string, dst any) bool {
	err := s.Cache.Get(ctx, key, dst)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (s *ListingService) store(ctx context.Context, key string, v any, ttl time.Duration) {
	if err := s.Cache.Set(ctx, key, v, ttl); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// locationFilters splits a comma-separated filter into trimmed, lowercased,
// sorted and deduplicated values.
func locationFilters(location string) []string {
	var out []string
	for _, part := range strings.Split(location, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func venuesKey(filters []string) string {
	if len(filters) == 0 {
		return "cinemas"
	}
	return "cinemas?location=" + strings.Join(filters, ",")
}

func containsFold(filters []string, location string) bool {
	loc := strings.ToLower(strings.TrimSpace(location))
	for _, f := range filters {
		if f == loc {
			return true
		}
	}
	return false
}
