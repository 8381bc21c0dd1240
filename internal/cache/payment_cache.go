// Package cache holds provider payments in redis for a short time.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"paygate/config"
	"paygate/internal/models"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "paygate:payment:"

// PaymentCache is a read-through cache in front of the provider. Errors are
// logged and reported as misses; the cache never fails a request.
type PaymentCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects using cfg; it returns nil when no address is configured.
func NewRedisClient(ctx context.Context, cfg *config.CacheConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        20,
		MinIdleConns:    2,
		ConnMaxIdleTime: 5 * time.Minute,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func NewPaymentCache(client *redis.Client, ttl time.Duration) *PaymentCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PaymentCache{client: client, ttl: ttl}
}

func (c *PaymentCache) Get(ctx context.Context, id string) (*models.Payment, bool) {
	data, err := c.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("[Cache] get failed", "id", id, "err", err)
		return nil, false
	}
	var p models.Payment
	if err := sonic.Unmarshal(data, &p); err != nil {
		slog.Warn("[Cache] corrupt entry dropped", "id", id, "err", err)
		c.client.Del(ctx, keyPrefix+id)
		return nil, false
	}
	return &p, true
}

func (c *PaymentCache) Set(ctx context.Context, p *models.Payment) {
	data, err := sonic.Marshal(p)
	if err != nil {
		slog.Warn("[Cache] encode failed", "id", p.ID, "err", err)
		return
	}
	if err := c.client.Set(ctx, keyPrefix+p.ID, data, c.ttl).Err(); err != nil {
		slog.Warn("[Cache] set failed", "id", p.ID, "err", err)
	}
}
