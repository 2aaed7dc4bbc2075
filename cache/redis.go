package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
)

// QuoteCachePrefix namespaces quote entries in Redis.
const QuoteCachePrefix = "shipping:quote:v1:"

// RedisQuoteCache stores quotes as JSON documents in Redis.
type RedisQuoteCache struct {
	redis redis.UniversalClient
}

func NewRedisQuoteCache(client redis.UniversalClient) *RedisQuoteCache {
	return &RedisQuoteCache{redis: client}
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *RedisQuoteCache) Get(ctx context.Context, key string) (*models.AggregatedQuote, bool, error) {
	raw, err := c.redis.Get(ctx, QuoteCachePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get: %v", ErrUnavailable, err)
	}

	var quote models.AggregatedQuote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, false, fmt.Errorf("decode cached quote: %w", err)
	}
	return &quote, true, nil
}

func (c *RedisQuoteCache) Set(ctx context.Context, key string, quote *models.AggregatedQuote, ttl time.Duration) error {
	if quote == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	b, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("encode quote: %w", err)
	}
	if err := c.redis.Set(ctx, QuoteCachePrefix+key, b, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set: %v", ErrUnavailable, err)
	}
	return nil
}
