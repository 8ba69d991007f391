package cache

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// OrderTTL outlives typical checkout abandonment windows while bounding
// staleness of the merchant-reference -> gateway-order mapping.
const OrderTTL = 3 * time.Hour

const orderKeyPrefix = "qliro:order:"

// OrderCache maps merchant references to gateway order ids. It is an
// optimization only: every failure is logged and reported as a miss, and
// reconciliation must work with the cache completely unavailable.
type OrderCache struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// NewOrderCache connects to the redis instance at redisURL. A nil cache is
// returned (not an error) when no URL is configured; all methods are nil-safe.
func NewOrderCache(redisURL string, logger *slog.Logger) (*OrderCache, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderCache{
		client: redis.NewClient(opts),
		logger: logger,
		ttl:    OrderTTL,
	}, nil
}

// GetOrderID returns the cached gateway order id for a merchant reference.
func (c *OrderCache) GetOrderID(ctx context.Context, merchantRef string) (string, bool) {
	if c == nil || c.client == nil {
		return "", false
	}
	val, err := c.client.Get(ctx, orderKeyPrefix+strings.TrimSpace(merchantRef)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("order_cache_get", "reference", merchantRef, "error", err)
		}
		return "", false
	}
	val = strings.TrimSpace(val)
	return val, val != ""
}

// PutOrderID stores the mapping with the configured TTL. Concurrent writers
// overwriting the same key are tolerated; last write wins.
func (c *OrderCache) PutOrderID(ctx context.Context, merchantRef, orderID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, orderKeyPrefix+strings.TrimSpace(merchantRef), strings.TrimSpace(orderID), c.ttl).Err(); err != nil {
		c.logger.Warn("order_cache_put", "reference", merchantRef, "error", err)
	}
}

// DeleteOrderID drops a mapping once the underlying order is terminal.
func (c *OrderCache) DeleteOrderID(ctx context.Context, merchantRef string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, orderKeyPrefix+strings.TrimSpace(merchantRef)).Err(); err != nil {
		c.logger.Warn("order_cache_delete", "reference", merchantRef, "error", err)
	}
}

// Close releases the redis connection.
func (c *OrderCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
