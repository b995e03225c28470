package session

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// StoreOption is a functional option for configuring a session store.
type StoreOption func(*storeConfig)

// storeConfig holds configuration shared by the store drivers.
type storeConfig struct {
	redisClient    *redis.Client
	ttl            time.Duration
	maxStoredTurns int
}

// WithRedisClient sets the Redis client for the Redis store.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithTTL sets the sliding expiry applied on every write.
func WithTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.ttl = ttl
	}
}

// WithMaxStoredTurns bounds how many turns a conversation log retains;
// appends beyond the bound drop the oldest turns.
func WithMaxStoredTurns(n int) StoreOption {
	return func(c *storeConfig) {
		c.maxStoredTurns = n
	}
}
