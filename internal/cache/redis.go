package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"github.com/nao1215/pixelscan/internal/model"
)

// KeyPrefix namespaces every key written by RedisCache.
const KeyPrefix = "pixelscan:url:"

// DefaultTTL is how long a cached result stays valid.
const DefaultTTL = time.Hour

// RedisCache is a result cache backed by Redis.
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	namespace string
	logger    *slog.Logger
}

// Option configures a RedisCache.
type Option func(*RedisCache)

// WithTTL sets the expiry of cached results.
func WithTTL(ttl time.Duration) Option {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithNamespace separates entries written under different detection
// settings, such as the fingerprint of the tracker registry.
func WithNamespace(ns string) Option {
	return func(c *RedisCache) {
		c.namespace = ns
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *RedisCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New connects lazily to the Redis server at addr ("host:port").
func New(addr string, opts ...Option) *RedisCache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr}), opts...)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, opts ...Option) *RedisCache {
	c := &RedisCache{client: client, ttl: DefaultTTL, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the Redis key for rawURL in the default namespace.
func Key(rawURL string) string {
	return NamespacedKey("", rawURL)
}

// NamespacedKey returns the Redis key for rawURL in namespace ns.
func NamespacedKey(ns, rawURL string) string {
	sum := blake2b.Sum256([]byte(rawURL))
	if ns == "" {
		return KeyPrefix + hex.EncodeToString(sum[:])
	}
	return KeyPrefix + ns + ":" + hex.EncodeToString(sum[:])
}

func (c *RedisCache) key(rawURL string) string {
	return NamespacedKey(c.namespace, rawURL)
}

// Get returns the cached result for rawURL, or nil when there is none.
func (c *RedisCache) Get(ctx context.Context, rawURL string) (*model.ScanResult, error) {
	data, err := c.client.Get(ctx, c.key(rawURL)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failure: %w", err)
	}

	var result model.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode cached result for %s: %w", rawURL, err)
	}
	return &result, nil
}

// Set stores result under its URL. Only completed results are cached.
func (c *RedisCache) Set(ctx context.Context, result *model.ScanResult) error {
	if result == nil || result.Status != model.StatusCompleted {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result for %s: %w", result.URL, err)
	}
	if err := c.client.Set(ctx, c.key(result.URL), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failure: %w", err)
	}
	c.logger.Debug("cached result", "url", result.URL, "ttl", c.ttl)
	return nil
}

// Invalidate removes the cached result for rawURL, so the next scan
// fetches it again.
func (c *RedisCache) Invalidate(ctx context.Context, rawURL string) error {
	if err := c.client.Del(ctx, c.key(rawURL)).Err(); err != nil {
		return fmt.Errorf("redis del failure: %w", err)
	}
	return nil
}

// Ping checks that the server is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failure: %w", err)
	}
	return nil
}

// Close releases the client's connections.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
