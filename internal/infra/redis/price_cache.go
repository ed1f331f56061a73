package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"paypal-billing-orchestrator/internal/domain/model"
	"paypal-billing-orchestrator/internal/infra/metrics"
	"paypal-billing-orchestrator/internal/usecase"
)

const priceListKey = "paypal:prices"

var _ usecase.PriceCache = (*PriceCache)(nil)

// PriceCache holds the filtered processor price list with a TTL, so a
// wallet-service outage does not take purchases down with it.
type PriceCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewPriceCache(client RedisClient, ttl time.Duration) *PriceCache {
	return &PriceCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *PriceCache) GetPriceList(ctx context.Context) (map[string]model.PricePoint, error) {
	data, err := c.client.Get(ctx, priceListKey)
	if err != nil {
		if err == goredis.Nil {
			metrics.IncCacheRequest("price", "miss")
			return nil, nil
		}
		metrics.IncCacheRequest("price", "error")
		return nil, err
	}

	var prices map[string]model.PricePoint
	if err := json.Unmarshal([]byte(data), &prices); err != nil {
		metrics.IncCacheRequest("price", "error")
		return nil, err
	}
	metrics.IncCacheRequest("price", "hit")
	return prices, nil
}

func (c *PriceCache) SetPriceList(ctx context.Context, prices map[string]model.PricePoint) error {
	data, err := json.Marshal(prices)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, priceListKey, data, c.ttl)
}
