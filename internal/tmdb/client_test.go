package tmdb_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/cartelera/internal/cache"
	"github.com/iliyamo/cartelera/internal/tmdb"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := tmdb.New("", "https://example.com", "es-ES")
	assert.Error(t, err)
}

func TestSearchMovieSendsQueryLanguageAndYear(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "key", q.Get("api_key"))
		assert.Equal(t, "es-ES", q.Get("language"))
		assert.Equal(t, "dune parte dos", q.Get("query"))
		assert.Equal(t, "2024", q.Get("year"))
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":693134,"title":"Dune: Parte dos"}],"total_results":1}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "es-ES")
	require.NoError(t, err)

	resp, err := client.SearchMovie(context.Background(), "dune parte dos", tmdb.SearchOptions{Year: 2024})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, int64(693134), resp.Results[0].ID)
}

func TestMovieHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "")
	require.NoError(t, err)

	_, err = client.Movie(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSearchMovieEmptyQuery(t *testing.T) {
	client, err := tmdb.New("key", "https://example.com", "")
	require.NoError(t, err)
	_, err = client.SearchMovie(context.Background(), "  ", tmdb.SearchOptions{})
	assert.Error(t, err)
}

func TestRateLimitHonorsContext(t *testing.T) {
	client, err := tmdb.New("key", "https://example.invalid", "", tmdb.WithRateLimit(0.001, 1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Configuration(ctx)
	assert.Error(t, err)
}

func TestCachedServesRepeatLookupsFromStore(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"id":7,"title":"Alien","runtime":117}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "es-ES")
	require.NoError(t, err)
	store, err := cache.NewMemory(10)
	require.NoError(t, err)
	cached := tmdb.NewCached(client, store, time.Hour, zap.NewNop())

	for i := 0; i < 3; i++ {
		m, err := cached.Movie(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, 117, m.Runtime)
	}
	assert.Equal(t, int32(1), calls.Load())

	keys, err := store.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"themoviedb/movie/7"}, keys)
}
