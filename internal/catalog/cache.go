package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kiwari-pos/tablepos/internal/config"
	"github.com/redis/go-redis/v9"
)

const keyNamespace = "tablepos"

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// RedisCache keeps resolved items keyed by price list and scanned code.
type RedisCache struct {
	store cmdable
	raw   *redis.Client
	ttl   time.Duration
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg config.RedisConfig) (*RedisCache, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCache{store: raw, raw: raw, ttl: cfg.ItemCacheTTL}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// GetItem returns the cached item. ok is false on a miss.
func (c *RedisCache) GetItem(ctx context.Context, priceList, code string) (Item, bool, error) {
	raw, err := c.store.Get(ctx, c.itemKey(priceList, code)).Result()
	if errors.Is(err, redis.Nil) {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, err
	}
	var item Item
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		// A stale or foreign value is treated as a miss and overwritten later.
		return Item{}, false, nil
	}
	return item, true, nil
}

func (c *RedisCache) SetItem(ctx context.Context, priceList, code string, item Item) error {
	b, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.itemKey(priceList, code), b, c.ttl).Err()
}

// Forget drops cached lookups for codes; cmd/seed calls it after upserting prices.
func (c *RedisCache) Forget(ctx context.Context, priceList string, codes ...string) error {
	if len(codes) == 0 {
		return nil
	}
	keys := make([]string, 0, len(codes))
	for _, code := range codes {
		keys = append(keys, c.itemKey(priceList, code))
	}
	return c.store.Del(ctx, keys...).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func (c *RedisCache) itemKey(priceList, code string) string {
	return buildKey("item", priceList, code)
}

func buildKey(parts ...string) string {
	clean := []string{keyNamespace}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		clean = append(clean, part)
	}
	return strings.Join(clean, ":")
}
