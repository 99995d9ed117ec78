package cachedresults

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	c := &Cache{}
	c.SetupWithClient(client, time.Minute)

	return c, server
}

func TestCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var missing []string
	found, err := c.Get(ctx, "cachedresults/routesbystop/A", &missing)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "cachedresults/routesbystop/A", []string{"R1", "R2"}))

	var routes []string
	found, err = c.Get(ctx, "cachedresults/routesbystop/A", &routes)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"R1", "R2"}, routes)

	require.NoError(t, c.Delete(ctx, "cachedresults/routesbystop/A"))
	found, _ = c.Get(ctx, "cachedresults/routesbystop/A", &routes)
	assert.False(t, found)
}

func TestCacheExpires(t *testing.T) {
	c, server := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "value"))
	server.FastForward(2 * time.Minute)

	var value string
	found, err := c.Get(ctx, "key", &value)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *Cache

	found, err := c.Get(context.Background(), "key", new(string))
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.Set(context.Background(), "key", "value"))
}
