package rendering

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/plantuml-studio/internal/logging"
	"github.com/redis/go-redis/v9"
)

const (
	renderKeyPrefix = "render:" // render:{format}:{sha256(code)}
	defaultCacheTTL = 24 * time.Hour
)

// CachedGateway memoizes successful renders in Redis. Failed renders are never
// cached, and cache faults fall through to the wrapped Renderer.
type CachedGateway struct {
	next   Renderer
	client *redis.Client
	ttl    time.Duration
}

func NewCachedGateway(next Renderer, client *redis.Client, ttl time.Duration) *CachedGateway {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedGateway{next: next, client: client, ttl: ttl}
}

func (c *CachedGateway) RenderSVG(ctx context.Context, code string) (string, error) {
	key := cacheKey(FormatSVG, code)
	logger := logging.FromContext(ctx)

	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		logger.LogDebugf("render_svg", "cache hit key=%s", key)
		return cached, nil
	case !errors.Is(err, redis.Nil):
		logger.LogWarnf("render_svg", "cache get failed: %v", err)
	}

	svg, err := c.next.RenderSVG(ctx, code)
	if err != nil {
		return "", err
	}
	if err := c.client.Set(ctx, key, svg, c.ttl).Err(); err != nil {
		logger.LogWarnf("render_svg", "cache set failed: %v", err)
	}
	return svg, nil
}

func (c *CachedGateway) RenderPNG(ctx context.Context, code string) ([]byte, error) {
	key := cacheKey(FormatPNG, code)
	logger := logging.FromContext(ctx)

	cached, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil && len(cached) > 0:
		logger.LogDebugf("render_png", "cache hit key=%s", key)
		return cached, nil
	case err != nil && !errors.Is(err, redis.Nil):
		logger.LogWarnf("render_png", "cache get failed: %v", err)
	}

	png, err := c.next.RenderPNG(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, png, c.ttl).Err(); err != nil {
		logger.LogWarnf("render_png", "cache set failed: %v", err)
	}
	return png, nil
}

func cacheKey(format Format, code string) string {
	sum := sha256.Sum256([]byte(code))
	return fmt.Sprintf("%s%s:%s", renderKeyPrefix, format, hex.EncodeToString(sum[:]))
}
