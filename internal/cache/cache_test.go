package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choplife/choplifeib/internal/config"
)

func newRedisCache(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client), mr
}

func TestRedis_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
	assert.True(t, mr.Exists("choplife:k"))

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "k2", []byte("v2"), 0))
	require.NoError(t, c.Delete(ctx, "k2"))
	_, err = c.Get(ctx, "k2")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), config.Redis{Addr: mr.Addr()})
	require.NoError(t, err)
	client.Close()

	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisClient(context.Background(), config.Redis{Addr: addr})
	assert.Error(t, err)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "short", []byte("a"), time.Second))
	require.NoError(t, m.Set(ctx, "forever", []byte("b"), 0))

	got, err := m.Get(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)

	now = now.Add(2 * time.Second)
	_, err = m.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrMiss)

	_, err = m.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemory_BoundedSize(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryWithLimits(100, time.Hour)

	for i := 0; i < 1000; i++ {
		require.NoError(t, m.Set(ctx, "search:q"+strconv.Itoa(i), []byte("x"), time.Minute))
	}
	assert.Equal(t, 100, m.Len())

	_, err := m.Get(ctx, "search:q0")
	assert.ErrorIs(t, err, ErrMiss, "oldest keys are evicted first")
	_, err = m.Get(ctx, "search:q999")
	assert.NoError(t, err)
}

func TestMemory_ExpiredReadKeepsNewerValue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", []byte("old"), time.Second))
	now = now.Add(time.Minute)
	require.NoError(t, m.Set(ctx, "k", []byte("new"), time.Minute))

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
	assert.Equal(t, 1, m.Len())
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	for name, c := range map[string]Cache{"memory": NewMemory(), "redis": func() Cache { r, _ := newRedisCache(t); return r }()} {
		t.Run(name, func(t *testing.T) {
			type payload struct {
				Name string `json:"name"`
			}
			require.NoError(t, SetJSON(ctx, c, "p", payload{Name: "Bodija"}, time.Minute))

			var got payload
			require.NoError(t, GetJSON(ctx, c, "p", &got))
			assert.Equal(t, "Bodija", got.Name)

			assert.ErrorIs(t, GetJSON(ctx, c, "nope", &got), ErrMiss)
		})
	}
}
