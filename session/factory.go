package session

import (
	"errors"
	"time"
)

// StoreType represents the type of session store.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

const (
	defaultTTL            = 24 * time.Hour
	defaultMaxStoredTurns = 50
)

var (
	// ErrInvalidConfig is returned when a driver's required options are missing.
	ErrInvalidConfig = errors.New("invalid store configuration")
	// ErrInvalidStoreType is returned for an unknown driver name.
	ErrInvalidStoreType = errors.New("invalid store type")
)

// NewStore creates a Store for the given driver type.
//
// The memory driver keeps everything in process and does not survive a
// restart; it is only suitable for single-instance deployments and must be
// selected explicitly. The redis driver requires WithRedisClient.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	config := &storeConfig{
		ttl:            defaultTTL,
		maxStoredTurns: defaultMaxStoredTurns,
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.ttl <= 0 {
		config.ttl = defaultTTL
	}
	if config.maxStoredTurns <= 0 {
		config.maxStoredTurns = defaultMaxStoredTurns
	}

	switch storeType {
	case StoreTypeMemory:
		return newMemoryStore(config), nil

	case StoreTypeRedis:
		if config.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return &redisStore{
			client:         config.redisClient,
			ttl:            config.ttl,
			maxStoredTurns: config.maxStoredTurns,
		}, nil

	default:
		return nil, ErrInvalidStoreType
	}
}
