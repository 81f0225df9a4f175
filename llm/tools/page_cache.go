package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPageTTL is how long fetched pages stay cached.
const DefaultPageTTL = 30 * time.Minute

// Snapshot is the raw state of a loaded page.
type Snapshot struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	HTML       string `json:"html"`
	StatusCode int    `json:"status_code,omitempty"`
	Cached     bool   `json:"-"`
}

// PageCache stores page snapshots by URL.
type PageCache interface {
	Get(ctx context.Context, url string) (*Snapshot, bool, error)
	Set(ctx context.Context, url string, page *Snapshot) error
}

// RedisCacheConfig holds Redis connection configuration
type RedisCacheConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisPageCache implements PageCache on Redis string keys.
type RedisPageCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisPageCache connects to Redis and verifies the connection.
func NewRedisPageCache(ctx context.Context, cfg RedisCacheConfig) (*RedisPageCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisPageCache(client, cfg), nil
}

func newRedisPageCache(client *redis.Client, cfg RedisCacheConfig) *RedisPageCache {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "cinema:page:"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultPageTTL
	}
	return &RedisPageCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisPageCache) key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Get returns the cached page for url, if any.
func (c *RedisPageCache) Get(ctx context.Context, url string) (*Snapshot, bool, error) {
	data, err := c.client.Get(ctx, c.key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("page cache get: %w", err)
	}

	var page Snapshot
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, false, fmt.Errorf("page cache decode: %w", err)
	}
	page.Cached = true
	return &page, true, nil
}

// Set stores page under url with the configured TTL.
func (c *RedisPageCache) Set(ctx context.Context, url string, page *Snapshot) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("page cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(url), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("page cache set: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (c *RedisPageCache) Close() error {
	return c.client.Close()
}
