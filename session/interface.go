package session

import (
	"context"
	"time"
)

// Store defines the interface for session-scoped storage with per-key expiry.
// TTL is sliding and refreshes on every write to a key, never on reads.
type Store interface {
	// Set stores an opaque value under key with the given TTL,
	// overwriting any previous value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves the value stored under key. The second return value is
	// false when the key is absent or expired (not an error).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Delete removes the key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// AppendTurn appends a complete turn to the session's conversation log
	// as a single atomic operation and refreshes the log's TTL. The log is
	// trimmed to the configured maximum number of stored turns, oldest
	// first.
	AppendTurn(ctx context.Context, sessionID string, turn Turn) error

	// ListTurns returns the session's conversation log in insertion order.
	// An absent or expired log yields an empty slice.
	ListTurns(ctx context.Context, sessionID string) ([]Turn, error)

	// ClearTurns removes the session's conversation log and reports whether
	// one existed.
	ClearTurns(ctx context.Context, sessionID string) (bool, error)

	// Close closes the store and releases any resources.
	Close() error
}
