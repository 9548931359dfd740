package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedCatalog decorates a Catalog with a Redis read-through cache. The
// cache is strictly best-effort: any Redis failure falls through to the
// underlying catalog, and a stale-but-cached price only ever affects display
// enrichment — the add-to-cart price capture is the authoritative snapshot
// from the moment it was taken, regardless of where the value came from.
type CachedCatalog struct {
	next Catalog
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedCatalog wraps next with a Redis cache using the given TTL.
func NewCachedCatalog(next Catalog, rdb *redis.Client, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{next: next, rdb: rdb, ttl: ttl}
}

func productKey(productID int64) string {
	return fmt.Sprintf("checkout:product:%d", productID)
}

// GetProduct returns the cached product when present, otherwise fetches from
// the underlying catalog and caches the result.
func (c *CachedCatalog) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	key := productKey(productID)

	raw, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		var p Product
		if jsonErr := json.Unmarshal([]byte(raw), &p); jsonErr == nil {
			return &p, nil
		}
		// Corrupt entry; drop it and refetch.
		_ = c.rdb.Del(ctx, key).Err()
	case err != redis.Nil:
		zctx.From(ctx).Debug("Catalog cache read failed",
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
	}

	p, err := c.next.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(p); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
			zctx.From(ctx).Debug("Catalog cache write failed",
				zap.Int64("product_id", productID),
				zap.Error(setErr),
			)
		}
	}
	return p, nil
}
