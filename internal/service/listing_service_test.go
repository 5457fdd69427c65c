package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/cartelera/internal/cache"
	"github.com/iliyamo/cartelera/internal/model"
	"github.com/iliyamo/cartelera/internal/queue"
	"github.com/iliyamo/cartelera/internal/reconcile"
	"github.com/iliyamo/cartelera/internal/registry"
	"github.com/iliyamo/cartelera/internal/repository"
	"github.com/iliyamo/cartelera/internal/scraper"
)

// fakeAdapter serves canned shows per venue id and counts calls.
type fakeAdapter struct {
	mu    sync.Mutex
	shows map[string][]model.Show
	errs  map[string]error
	calls map[string]int
}

func (f *fakeAdapter) FetchShows(_ context.Context, v model.Venue) ([]model.Show, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[v.ID]++
	if err := f.errs[v.ID]; err != nil {
		return nil, err
	}
	return f.shows[v.ID], nil
}

func (f *fakeAdapter) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

type adapters map[string]scraper.Adapter

func (a adapters) For(family string) (scraper.Adapter, bool) {
	ad, ok := a[family]
	return ad, ok
}

// fakeReconciler marks every show whose name is in matches as enriched.
type fakeReconciler struct {
	matches map[string]int64
}

func (f fakeReconciler) ReconcileAll(_ context.Context, shows []model.Show) ([]model.EnrichedShow, reconcile.Summary) {
	var sum reconcile.Summary
	out := make([]model.EnrichedShow, len(shows))
	for i, s := range shows {
		out[i] = model.EnrichedShow{Show: s}
		if id, ok := f.matches[s.Name]; ok {
			out[i].TheMovieDbID = id
			out[i].Title = s.Name
			sum.Matched++
		} else {
			sum.Missed++
		}
	}
	return out, sum
}

type fakeVenues struct {
	mu       sync.Mutex
	stored   map[string]repository.StoredVenue
	listings []string
	upserted int
}

func (f *fakeVenues) UpsertVenues(_ context.Context, v []model.Venue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted += len(v)
	return nil
}

func (f *fakeVenues) UpsertListing(_ context.Context, l model.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listings = append(f.listings, l.ID)
	return nil
}

func (f *fakeVenues) GetByID(_ context.Context, id string) (*repository.StoredVenue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.stored[id]; ok {
		return &v, nil
	}
	return nil, repository.ErrVenueNotFound
}

type fakeShows struct {
	mu       sync.Mutex
	basic    int
	enriched int
}

func (f *fakeShows) UpsertShows(_ context.Context, s []model.Show) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.basic += len(s)
	return nil
}

func (f *fakeShows) UpsertEnrichedShows(_ context.Context, s []model.EnrichedShow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enriched += len(s)
	return nil
}

type fakeDirectory struct {
	venues []model.Venue
	err    error
}

func (f fakeDirectory) FetchVenues(context.Context, string) ([]model.Venue, error) {
	return f.venues, f.err
}

type fakePublisher struct {
	events []queue.ListingsRefreshedEvent
}

func (f *fakePublisher) PublishListingsRefreshed(_ context.Context, ev queue.ListingsRefreshedEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func venue(id, location string) registry.Seed {
	return registry.Seed{Venue: model.Venue{
		ID: id, Name: "Cines " + id, Location: location,
		Source: "https://example.com/" + id, Family: model.FamilyListing,
	}}
}

type fixture struct {
	svc       *ListingService
	adapter   *fakeAdapter
	venues    *fakeVenues
	shows     *fakeShows
	publisher *fakePublisher
	cache     *cache.Memory
}

func newFixture(t *testing.T, seeds ...registry.Seed) *fixture {
	t.Helper()
	mem, err := cache.NewMemory(100)
	require.NoError(t, err)
	f := &fixture{
		adapter:   &fakeAdapter{shows: map[string][]model.Show{}, errs: map[string]error{}},
		venues:    &fakeVenues{stored: map[string]repository.StoredVenue{}},
		shows:     &fakeShows{},
		publisher: &fakePublisher{},
		cache:     mem,
	}
	f.svc = NewListingService(Deps{
		Registry:   registry.New(seeds),
		Adapters:   adapters{model.FamilyListing: f.adapter},
		Reconciler: fakeReconciler{matches: map[string]int64{"Dune": 438631}},
		Cache:      mem,
		Venues:     f.venues,
		Shows:      f.shows,
		Publisher:  f.publisher,
	}, Options{ShortTTL: time.Hour, Parallelism: 2}, zap.NewNop())
	return f
}

func TestListVenuesFiltersByLocation(t *testing.T) {
	f := newFixture(t, venue("palafox", "Zaragoza"), venue("lys", "Valencia"), venue("victoria", "Huesca"))
	ctx := context.Background()

	all, err := f.svc.ListVenues(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, err := f.svc.ListVenues(ctx, " valencia, HUESCA ,Valencia,")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "lys", got[0].ID)
	assert.Equal(t, "victoria", got[1].ID)

	none, err := f.svc.ListVenues(ctx, "Madrid")
	require.NoError(t, err)
	assert.Empty(t, none)

	status, err := f.svc.CacheStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cinemas", "cinemas?location=huesca,valencia", "cinemas?location=madrid"}, status.Keys)
	assert.Equal(t, "3/100", status.Count)
}

func TestGetShowsCachesAndPersists(t *testing.T) {
	f := newFixture(t, venue("palafox", "Zaragoza"))
	f.adapter.shows["palafox"] = []model.Show{{ID: "dune", Name: "Dune"}, {ID: "alien", Name: "Alien"}}
	ctx := context.Background()

	first, err := f.svc.GetShows(ctx, "palafox")
	require.NoError(t, err)
	assert.Len(t, first.Shows, 2)
	assert.Equal(t, "Cines palafox", first.Name)
	assert.False(t, first.LastUpdated.IsZero())

	second, err := f.svc.GetShows(ctx, "palafox")
	require.NoError(t, err)
	assert.Equal(t, first.ShowIDs(), second.ShowIDs())
	assert.Equal(t, 1, f.adapter.count("palafox"), "second read is served from cache")
	assert.Equal(t, []string{"palafox"}, f.venues.listings)
	assert.Equal(t, 2, f.shows.basic)
}

// cacheCheckingVenues records whether the listing was already cached when it
// was persisted.
type cacheCheckingVenues struct {
	*fakeVenues
	cache        cache.Store
	cachedBefore bool
}

func (v *cacheCheckingVenues) UpsertListing(ctx context.Context, l model.Listing) error {
	var got model.Listing
	v.cachedBefore = v.cache.Get(ctx, "cinema/"+l.ID, &got) == nil
	return v.fakeVenues.UpsertListing(ctx, l)
}

func TestGetShowsPersistsBeforeCaching(t *testing.T) {
	f := newFixture(t, venue("palafox", "Zaragoza"))
	f.adapter.shows["palafox"] = []model.Show{{ID: "dune", Name: "Dune"}}
	store := &cacheCheckingVenues{fakeVenues: f.venues, cache: f.cache}
	f.svc.Venues = store

	_, err := f.svc.GetShows(context.Background(), "palafox")
	require.NoError(t, err)
	assert.Equal(t, []string{"palafox"}, f.venues.listings)
	assert.False(t, store.cachedBefore)
}

func TestGetShowsUnknownVenue(t *testing.T) {
	f := newFixture(t, venue("palafox", "Zaragoza"))

	_, err := f.svc.GetShows(context.Background(), "nope")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, ErrorPayload{StatusCode: http.StatusNotFound, Message: "Resource with ID 'nope' was not found"}, ErrorPayloadFrom(err))

	_, err = f.svc.GetEnrichedShows(context.Background(), "nope")
	assert.ErrorAs(t, err, &nf)
}

func TestGetShowsEmptyAndFailingSources(t *testing.T) {
	f := newFixture(t, venue("empty", "Zaragoza"), venue("broken", "Zaragoza"))
	f.adapter.errs["broken"] = &scraper.ParseError{URL: "https://example.com/broken", Reason: "no index items"}
	ctx := context.Background()

	_, err := f.svc.GetShows(ctx, "empty")
	require.ErrorIs(t, err, ErrEmptyListing)
	assert.Equal(t, http.StatusInternalServerError, ErrorPayloadFrom(err).StatusCode)

	_, err = f.svc.GetShows(ctx, "broken")
	var pe *scraper.ParseError
	require.ErrorAs(t, err, &pe)
	payload := ErrorPayloadFrom(err)
	assert.Equal(t, http.StatusInternalServerError, payload.StatusCode)
	assert.Contains(t, payload.Message, "no index items")

	keys, _ := f.cache.Keys(ctx)
	assert.Empty(t, keys, "failures are never cached")
}

func TestGetEnrichedShows(t *testing.T) {
	f := newFixture(t, venue("palafox", "Zaragoza"))
	f.adapter.shows["palafox"] = []model.Show{{ID: "dune", Name: "Dune"}, {ID: "corto", Name: "Corto"}}
	ctx := context.Background()

	got, err := f.svc.GetEnrichedShows(ctx, "palafox")
	require.NoError(t, err)
	require.Len(t, got.Shows, 2)
	assert.Equal(t, int64(438631), got.Shows[0].TheMovieDbID)
	assert.False(t, got.Shows[1].Enriched())
	assert.Equal(t, 2, f.shows.enriched)

	again, err := f.svc.GetEnrichedShows(ctx, "palafox")
	require.NoError(t, err)
	assert.Equal(t, got.Shows[0].TheMovieDbID, again.Shows[0].TheMovieDbID)
	assert.Equal(t, 1, f.adapter.count("palafox"))

	status, err := f.svc.CacheStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cinema/palafox", "cinema/palafox/pro"}, status.Keys)
}

func TestGetVenueFallsBackToStore(t *testing.T) {
	f := newFixture(t, venue("palafox", "Zaragoza"))
	f.venues.stored["old"] = repository.StoredVenue{Venue: model.Venue{ID: "old", Name: "Cine Viejo"}}
	ctx := context.Background()

	v, err := f.svc.GetVenue(ctx, "palafox")
	require.NoError(t, err)
	assert.Equal(t, "Cines palafox", v.Name)

	v, err = f.svc.GetVenue(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, "Cine Viejo", v.Name)

	_, err = f.svc.GetVenue(ctx, "gone")
	assert.Equal(t, http.StatusNotFound, ErrorPayloadFrom(err).StatusCode)

	_, err = f.svc.GetVenue(ctx, "")
	assert.Equal(t, http.StatusBadRequest, ErrorPayloadFrom(err).StatusCode)
}

func TestRefreshAllPartialFailure(t *testing.T) {
	f := newFixture(t,
		venue("a", "Zaragoza"), venue("b", "Zaragoza"), venue("c", "Huesca"), venue("d", "Teruel"), venue("e", "Valencia"))
	for _, id := range []string{"a", "c", "d", "e"} {
		f.adapter.shows[id] = []model.Show{{ID: "dune", Name: "Dune"}, {ID: "corto", Name: "Corto"}}
	}
	f.adapter.errs["b"] = &scraper.FetchError{URL: "https://example.com/b", StatusCode: http.StatusBadGateway}
	ctx := context.Background()

	// stale entries are dropped before refreshing
	require.NoError(t, f.cache.Set(ctx, "cinemas", []model.Venue{}, time.Hour))

	report, err := f.svc.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, RefreshPartial, report.Status)
	require.Len(t, report.Outcomes, 5)

	ids := make([]string, 0, 5)
	for _, o := range report.Outcomes {
		ids = append(ids, o.VenueID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
	assert.Equal(t, VenueOutcome{VenueID: "a", Shows: 2, Enriched: 1}, report.Outcomes[0])
	assert.Contains(t, report.Outcomes[1].Error, "unexpected status 502")
	assert.Equal(t, VenueOutcome{VenueID: "d", Shows: 2, Enriched: 1}, report.Outcomes[3])
	assert.Len(t, report.Failed(), 1)

	// healthy venues are persisted and cached, and the report carries the
	// resulting cache status
	assert.Equal(t, []string{
		"cinema/a", "cinema/a/pro", "cinema/c", "cinema/c/pro",
		"cinema/d", "cinema/d/pro", "cinema/e", "cinema/e/pro",
	}, report.Keys)
	assert.Equal(t, "8/100", report.Count)
	assert.Equal(t, 8, f.shows.enriched)
	assert.ElementsMatch(t, []string{"a", "c", "d", "e"}, f.venues.listings)

	payload, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"count":"8/100"`)
	assert.Contains(t, string(payload), `"keys":["cinema/a",`)

	require.Len(t, f.publisher.events, 1)
	ev := f.publisher.events[0]
	assert.Equal(t, RefreshPartial, ev.Status)
	assert.Equal(t, []string{"b"}, ev.FailedVenues)
	assert.Equal(t, 8, ev.Shows)
	assert.Equal(t, 4, ev.Enriched)
	assert.NotEmpty(t, ev.EventID)
}

func TestRefreshAllMergesDirectory(t *testing.T) {
	f := newFixture(t, venue("a", "Zaragoza"))
	f.adapter.shows["a"] = []model.Show{{ID: "dune", Name: "Dune"}}
	f.svc.Directory = fakeDirectory{venues: []model.Venue{
		{ID: "nuevo", Name: "Cine Nuevo", Location: "Teruel", Source: "https://example.com/nuevo", Family: model.FamilyListing},
	}}
	f.svc.opts.DirectoryURL = "https://example.com/cines"

	report, err := f.svc.RefreshAll(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, "nuevo", report.Outcomes[1].VenueID)
	assert.Equal(t, RefreshPartial, report.Status, "the new venue has no shows yet")
	assert.Equal(t, 2, f.venues.upserted)
}

func TestRefreshAllKeepsRegistryWhenDirectoryFails(t *testing.T) {
	f := newFixture(t, venue("a", "Zaragoza"))
	f.adapter.errs["a"] = errors.New("down")
	f.svc.Directory = fakeDirectory{err: &scraper.FetchError{URL: "https://example.com/cines", StatusCode: 503}}
	f.svc.opts.DirectoryURL = "https://example.com/cines"

	report, err := f.svc.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RefreshFailed, report.Status)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, "a", report.Outcomes[0].VenueID)
}

func TestLocationFilters(t *testing.T) {
	assert.Nil(t, locationFilters(""))
	assert.Nil(t, locationFilters(" , "))
	assert.Equal(t, []string{"huesca", "zaragoza"}, locationFilters("Zaragoza,huesca, ZARAGOZA"))
	assert.Equal(t, "cinemas", venuesKey(nil))
}
