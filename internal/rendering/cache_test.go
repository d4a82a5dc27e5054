package rendering

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	require.NoError(t, client.Ping(context.Background()).Err())

	return client, mr
}

func TestCachedGateway_RenderSVG(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()
	eng := &fakeEngine{output: "<svg>cached</svg>", desc: "OK"}
	cached := NewCachedGateway(NewGateway(eng), client, time.Hour)

	t.Run("miss then hit", func(t *testing.T) {
		first, err := cached.RenderSVG(ctx, validCode)
		require.NoError(t, err)
		second, err := cached.RenderSVG(ctx, validCode)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, eng.calls)
		assert.True(t, mr.Exists(cacheKey(FormatSVG, validCode)))
		assert.Equal(t, time.Hour, mr.TTL(cacheKey(FormatSVG, validCode)))
	})

	t.Run("failures are not cached", func(t *testing.T) {
		bad := "@startuml\nbroken\n@enduml"
		failing := NewCachedGateway(NewGateway(&fakeEngine{desc: "Error line 2: Syntax Error?"}), client, time.Hour)

		_, err := failing.RenderSVG(ctx, bad)
		assert.ErrorIs(t, err, ErrRenderingFailed)
		assert.False(t, mr.Exists(cacheKey(FormatSVG, bad)))
	})
}

func TestCachedGateway_RedisOutage(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()
	mr.Close()

	eng := &fakeEngine{output: "<svg>direct</svg>", desc: "OK"}
	g := NewCachedGateway(NewGateway(eng), client, time.Hour)

	svg, err := g.RenderSVG(context.Background(), validCode)
	require.NoError(t, err)
	assert.Equal(t, "<svg>direct</svg>", svg)
	assert.Equal(t, 1, eng.calls)
}

func TestCachedGateway_RenderPNG(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()
	eng := &fakeEngine{output: "\x89PNG\x00\x01", desc: "OK"}
	cached := NewCachedGateway(NewGateway(eng), client, 0)

	first, err := cached.RenderPNG(ctx, validCode)
	require.NoError(t, err)
	second, err := cached.RenderPNG(ctx, validCode)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, eng.calls)
	assert.Equal(t, defaultCacheTTL, mr.TTL(cacheKey(FormatPNG, validCode)))
}

func TestCacheKey(t *testing.T) {
	assert.NotEqual(t, cacheKey(FormatSVG, validCode), cacheKey(FormatPNG, validCode))
	assert.Equal(t, cacheKey(FormatSVG, validCode), cacheKey(FormatSVG, validCode))
	assert.Contains(t, cacheKey(FormatSVG, validCode), "render:svg:")
}
