package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/cartelera/internal/model"
	"github.com/iliyamo/cartelera/internal/tmdb"
)

// fakeCatalog answers from fixed maps; searches are keyed by year (0 for
// unscoped).
type fakeCatalog struct {
	mu        sync.Mutex
	search    map[int][]tmdb.SearchResult
	searchErr error
	movies    map[int64]*tmdb.Movie
	credits   map[int64]*tmdb.Credits
	videos    map[int64]*tmdb.Videos
	searches  []tmdb.SearchOptions
	panicOn   string
}

func (f *fakeCatalog) Configuration(context.Context) (*tmdb.Configuration, error) {
	var cfg tmdb.Configuration
	cfg.Images.SecureBaseURL = "https://image.tmdb.org/t/p/"
	return &cfg, nil
}

func (f *fakeCatalog) SearchMovie(_ context.Context, query string, opts tmdb.SearchOptions) (*tmdb.SearchResponse, error) {
	if query == f.panicOn {
		panic("boom")
	}
	f.mu.Lock()
	f.searches = append(f.searches, opts)
	f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &tmdb.SearchResponse{Results: f.search[opts.Year]}, nil
}

func (f *fakeCatalog) Movie(_ context.Context, id int64) (*tmdb.Movie, error) {
	if m, ok := f.movies[id]; ok {
		return m, nil
	}
	return nil, errors.New("tmdb /movie returned 404")
}

func (f *fakeCatalog) Credits(_ context.Context, id int64) (*tmdb.Credits, error) {
	if c, ok := f.credits[id]; ok {
		return c, nil
	}
	return &tmdb.Credits{ID: id}, nil
}

func (f *fakeCatalog) Videos(_ context.Context, id int64) (*tmdb.Videos, error) {
	if v, ok := f.videos[id]; ok {
		return v, nil
	}
	return &tmdb.Videos{ID: id}, nil
}

func newReconciler(cat *fakeCatalog, opts ...Option) *Reconciler {
	return New(cat, zap.NewNop(), opts...)
}

func TestReconcileExactMatchMergesCatalogData(t *testing.T) {
	cat := &fakeCatalog{
		search: map[int][]tmdb.SearchResult{0: {
			{ID: 1, Title: "Dune: Parte dos"},
			{ID: 2, Title: "Dune"},
		}},
		movies: map[int64]*tmdb.Movie{2: {
			ID: 2, Title: "Dune", OriginalTitle: "Dune", Runtime: 155, PosterPath: "/dune.jpg",
			ReleaseDate: "2021-09-15", Budget: 165000000, Revenue: 402000000, ImdbID: "tt1160419",
			Overview: "Arrakis.", VoteAverage: 7.8, VoteCount: 12000, Genres: []tmdb.Genre{{Name: "Ciencia ficción"}},
		}},
		credits: map[int64]*tmdb.Credits{2: {
			Cast: []tmdb.CastMember{
				{Name: "Timothée Chalamet", Character: "Paul", KnownForDepartment: "Acting", ProfilePath: "/tc.jpg"},
				{Name: "Hans Zimmer", KnownForDepartment: "Sound"},
			},
			Crew: []tmdb.CrewMember{
				{Name: "Denis Villeneuve", Job: "Director", ProfilePath: "/dv.jpg"},
				{Name: "Eric Roth", Job: "Screenplay"},
				{Name: "Denis Villeneuve", Job: "Screenplay"},
			},
		}},
		videos: map[int64]*tmdb.Videos{2: {Results: []tmdb.Video{{Key: "n9xhJrPXop4", Site: "YouTube"}}}},
	}
	show := model.Show{ID: "dune", Name: "Dune", Duration: 150, Trailer: "https://scraped/trailer", Sessions: []model.Session{{Time: "18:00"}}}

	got, outcome := newReconciler(cat).Reconcile(context.Background(), show)
	require.Equal(t, Matched, outcome)

	assert.Equal(t, "dune", got.ID, "id stays the scraped slug")
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, int64(2), got.TheMovieDbID)
	assert.Equal(t, 2021, got.Year)
	assert.Equal(t, 155, got.Duration)
	assert.Equal(t, "2h 35m", got.DurationReadable)
	assert.Equal(t, "https://image.tmdb.org/t/p/w342/dune.jpg", got.Poster)
	assert.Equal(t, "Arrakis.", got.Synopsis)
	assert.Equal(t, []string{"Ciencia ficción"}, got.Genres)
	assert.Equal(t, &model.Person{Name: "Denis Villeneuve", Picture: "https://image.tmdb.org/t/p/w185/dv.jpg"}, got.Director)
	assert.Len(t, got.Writers, 2)
	assert.Equal(t, []model.Person{{Name: "Timothée Chalamet", Character: "Paul", Picture: "https://image.tmdb.org/t/p/w185/tc.jpg"}}, got.Cast)
	assert.Equal(t, "https://www.youtube.com/watch?v=n9xhJrPXop4", got.Trailer)
	assert.Equal(t, show.Sessions, got.Sessions)
}

func TestReconcileFallsBackToContainmentTiers(t *testing.T) {
	cat := &fakeCatalog{
		search: map[int][]tmdb.SearchResult{0: {
			{ID: 10, Title: "Oppenheimer"},
			{ID: 11, Title: "Oppenheimer: la historia secreta"},
		}},
		movies: map[int64]*tmdb.Movie{10: {ID: 10, Title: "Oppenheimer", Runtime: 180}},
	}
	show := model.Show{ID: "oppenheimer-vose", Name: "Oppenheimer VOSE", Duration: 180}

	got, outcome := newReconciler(cat).Reconcile(context.Background(), show)
	require.Equal(t, Matched, outcome)
	assert.Equal(t, int64(10), got.TheMovieDbID)
	assert.Nil(t, got.Writers, "writers stay nil when the crew has none")
	assert.Empty(t, got.Trailer, "no video and no scraped trailer")
}

func TestReconcileTrailerUsesFirstVideo(t *testing.T) {
	cat := &fakeCatalog{
		search: map[int][]tmdb.SearchResult{0: {{ID: 30, Title: "Alien"}}},
		movies: map[int64]*tmdb.Movie{30: {ID: 30, Title: "Alien", Runtime: 117}},
		videos: map[int64]*tmdb.Videos{30: {Results: []tmdb.Video{
			{Key: "first", Site: "Vimeo"},
			{Key: "second", Site: "YouTube"},
		}}},
	}
	got, outcome := newReconciler(cat).Reconcile(context.Background(), model.Show{ID: "alien", Name: "Alien", Trailer: "https://scraped/alien"})
	require.Equal(t, Matched, outcome)
	assert.Equal(t, "https://www.youtube.com/watch?v=first", got.Trailer)

	cat.videos[30] = &tmdb.Videos{Results: []tmdb.Video{{Site: "YouTube"}}}
	got, outcome = newReconciler(cat).Reconcile(context.Background(), model.Show{ID: "alien", Name: "Alien", Trailer: "https://scraped/alien"})
	require.Equal(t, Matched, outcome)
	assert.Equal(t, "https://scraped/alien", got.Trailer, "a keyless first video keeps the scraped trailer")
}

func TestReconcileCandidateContainsScraped(t *testing.T) {
	cat := &fakeCatalog{
		search: map[int][]tmdb.SearchResult{0: {
			{ID: 20, Title: "Wonka"},
			{ID: 21, Title: "Chicken Run: Amanecer de los nuggets"},
		}},
		movies: map[int64]*tmdb.Movie{21: {ID: 21, Title: "Chicken Run: Amanecer de los nuggets", Runtime: 101}},
	}
	show := model.Show{ID: "chicken-run", Name: "Chicken Run", Duration: 100}

	got, outcome := newReconciler(cat).Reconcile(context.Background(), show)
	require.Equal(t, Matched, outcome)
	assert.Equal(t, int64(21), got.TheMovieDbID)
}

func TestReconcileSingleResultShortcut(t *testing.T) {
	cat := &fakeCatalog{
		search: map[int][]tmdb.SearchResult{0: {{ID: 30, Title: "Anatomía de una caída"}}},
		movies: map[int64]*tmdb.Movie{30: {ID: 30, Title: "Anatomía de una caída", Runtime: 151}},
	}
	show := model.Show{ID: "anatomie-dune-chute", Name: "Anatomie d'une chute", Duration: 150}

	_, outcome := newReconciler(cat).Reconcile(context.Background(), show)
	assert.Equal(t, Matched, outcome)
}

func TestReconcileRejectsRuntimeMismatch(t *testing.T) {
	cat := &fakeCatalog{
		search: map[int][]tmdb.SearchResult{0: {{ID: 40, Title: "Alien"}}},
		movies: map[int64]*tmdb.Movie{40: {ID: 40, Title: "Alien", Runtime: 150}},
	}
	show := model.Show{ID: "alien", Name: "Alien", Duration: 120, Poster: "scraped.jpg"}

	got, outcome := newReconciler(cat).Reconcile(context.Background(), show)
	assert.Equal(t, Miss, outcome)
	assert.Equal(t, model.EnrichedShow{Show: show}, got)
}

func TestReconcileToleranceIsInclusive(t *testing.T) {
	cat := &fakeCatalog{
		search: map[int][]tmdb.SearchResult{0: {{ID: 41, Title: "Alien"}}},
		movies: map[int64]*tmdb.Movie{41: {ID: 41, Title: "Alien", Runtime: 140}},
	}
	_, outcome := newReconciler(cat).Reconcile(context.Background(), model.Show{ID: "alien", Name: "Alien", Duration: 120})
	assert.Equal(t, Matched, outcome)
}

func TestDisambiguationKeepsLastQualifyingCandidate(t *testing.T) {
	cat := &fakeCatalog{
		search: map[int][]tmdb.SearchResult{0: {
			{ID: 50, Title: "Napoleón"},
			{ID: 51, Title: "Napoleón"},
			{ID: 52, Title: "Napoleón"},
		}},
		movies: map[int64]*tmdb.Movie{
			50: {ID: 50, Title: "Napoleón", Runtime: 80},
			51: {ID: 51, Title: "Napoleón", Runtime: 130},
			52: {ID: 52, Title: "Napoleón", Runtime: 131},
		},
	}
	got, outcome := newReconciler(cat).Reconcile(context.Background(), model.Show{ID: "napoleon", Name: "Napoleón", Duration: 128})
	require.Equal(t, Matched, outcome)
	assert.Equal(t, 131, got.Duration)
	assert.Equal(t, int64(52), got.TheMovieDbID)
}

func TestDisambiguationNeedsScrapedDuration(t *testing.T) {
	cat := &fakeCatalog{
		search: map[int][]tmdb.SearchResult{0: {{ID: 60, Title: "Nosferatu"}, {ID: 61, Title: "Nosferatu"}}},
		movies: map[int64]*tmdb.Movie{60: {ID: 60, Runtime: 94}, 61: {ID: 61, Runtime: 132}},
	}
	_, outcome := newReconciler(cat).Reconcile(context.Background(), model.Show{ID: "nosferatu", Name: "Nosferatu"})
	assert.Equal(t, Miss, outcome)
}

func TestReconcileRetriesWithoutYear(t *testing.T) {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	cat := &fakeCatalog{
		search: map[int][]tmdb.SearchResult{0: {{ID: 70, Title: "Robot salvaje"}}},
		movies: map[int64]*tmdb.Movie{70: {ID: 70, Title: "Robot salvaje", Runtime: 102}},
	}
	r := newReconciler(cat, WithCurrentYearSearch(true), WithClock(func() time.Time { return now }))

	_, outcome := r.Reconcile(context.Background(), model.Show{ID: "robot-salvaje", Name: "Robot salvaje", Duration: 102})
	require.Equal(t, Matched, outcome)
	assert.Equal(t, []tmdb.SearchOptions{{Year: 2025}, {}}, cat.searches)
}

func TestReconcileFailuresLeaveShowUnchanged(t *testing.T) {
	show := model.Show{ID: "x", Name: "X", Duration: 90}

	got, outcome := newReconciler(&fakeCatalog{searchErr: errors.New("tmdb down")}).Reconcile(context.Background(), show)
	assert.Equal(t, Failed, outcome)
	assert.Equal(t, model.EnrichedShow{Show: show}, got)

	got, outcome = newReconciler(&fakeCatalog{panicOn: "x"}).Reconcile(context.Background(), show)
	assert.Equal(t, Failed, outcome)
	assert.Equal(t, model.EnrichedShow{Show: show}, got)

	got, outcome = newReconciler(&fakeCatalog{}).Reconcile(context.Background(), show)
	assert.Equal(t, Miss, outcome)
	assert.False(t, got.Enriched())
}

func TestReconcileAllKeepsOrder(t *testing.T) {
	cat := &fakeCatalog{
		search: map[int][]tmdb.SearchResult{0: {{ID: 80, Title: "Perfect Days"}}},
		movies: map[int64]*tmdb.Movie{80: {ID: 80, Title: "Perfect Days", Runtime: 124}},
	}
	shows := []model.Show{
		{ID: "a", Name: "Perfect Days", Duration: 124},
		{ID: "b", Name: "Perfect Days", Duration: 60},
		{ID: "c", Name: "", Duration: 124},
	}
	got, sum := newReconciler(cat).ReconcileAll(context.Background(), shows)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.True(t, got[0].Enriched())
	assert.Equal(t, Summary{Matched: 1, Missed: 2}, sum)
}
