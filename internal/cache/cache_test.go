package cache

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
}

func TestMemoryExpiresStrictlyAfterTTL(t *testing.T) {
	m, err := NewMemory(10)
	require.NoError(t, err)
	now := time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "cinema/palafox", payload{Name: "Palafox"}, time.Hour))

	var got payload
	require.NoError(t, m.Get(ctx, "cinema/palafox", &got))
	assert.Equal(t, "Palafox", got.Name)

	now = now.Add(time.Hour)
	require.NoError(t, m.Get(ctx, "cinema/palafox", &got), "entry is fresh at exactly its expiry")

	now = now.Add(time.Nanosecond)
	assert.ErrorIs(t, m.Get(ctx, "cinema/palafox", &got), ErrMiss)
	keys, _ := m.Keys(ctx)
	assert.Empty(t, keys)
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	m, err := NewMemory(2)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", 1, time.Hour))
	require.NoError(t, m.Set(ctx, "b", 2, time.Hour))
	var n int
	require.NoError(t, m.Get(ctx, "a", &n))
	require.NoError(t, m.Set(ctx, "c", 3, time.Hour))

	keys, err := m.Keys(ctx)
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "c"}, keys)
	assert.Equal(t, 2, m.Max())
}

func TestMemorySetReplacesAndClear(t *testing.T) {
	m, err := NewMemory(5)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", payload{Name: "old"}, time.Hour))
	require.NoError(t, m.Set(ctx, "k", payload{Name: "new"}, time.Hour))
	var got payload
	require.NoError(t, m.Get(ctx, "k", &got))
	assert.Equal(t, "new", got.Name)

	require.NoError(t, m.Clear(ctx))
	assert.ErrorIs(t, m.Get(ctx, "k", &got), ErrMiss)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	require.NoError(t, mr.Set("foreign", "x"))
	r := NewRedis(rdb, "cartelera", 100)

	require.NoError(t, r.Set(ctx, "cinemas", []payload{{Name: "Palafox"}}, time.Minute))
	require.NoError(t, r.Set(ctx, "cinema/palafox", payload{Name: "Palafox"}, time.Hour))

	var got []payload
	require.NoError(t, r.Get(ctx, "cinemas", &got))
	assert.Equal(t, []payload{{Name: "Palafox"}}, got)

	keys, err := r.Keys(ctx)
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"cinema/palafox", "cinemas"}, keys)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, r.Get(ctx, "cinemas", &got), ErrMiss)

	require.NoError(t, r.Clear(ctx))
	keys, err = r.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.True(t, mr.Exists("foreign"), "clear must not touch keys outside the prefix")
}
