package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"matatu_hub/internal/earnings"
)

// RouteCache stores route-level projections between requests.
type RouteCache interface {
	Get(ctx context.Context, routeID uint) (earnings.RouteProjection, bool, error)
	Set(ctx context.Context, p earnings.RouteProjection) error
	Invalidate(ctx context.Context, routeID uint) error
}

// RedisRouteCache keeps projections as JSON strings with a TTL.
type RedisRouteCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisRouteCache(client redis.Cmdable, ttl time.Duration) *RedisRouteCache {
	return &RedisRouteCache{client: client, ttl: ttl}
}

func routeKey(routeID uint) string {
	return fmt.Sprintf("earnings:route:%d", routeID)
}

func (c *RedisRouteCache) Get(ctx context.Context, routeID uint) (earnings.RouteProjection, bool, error) {
	var p earnings.RouteProjection
	raw, err := c.client.Get(ctx, routeKey(routeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return p, false, nil
	}
	if err != nil {
		return p, false, err
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, false, err
	}
	return p, true, nil
}

func (c *RedisRouteCache) Set(ctx context.Context, p earnings.RouteProjection) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, routeKey(p.RouteID), raw, c.ttl).Err()
}

func (c *RedisRouteCache) Invalidate(ctx context.Context, routeID uint) error {
	return c.client.Del(ctx, routeKey(routeID)).Err()
}
