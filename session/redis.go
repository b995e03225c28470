package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/creastat/dialog"
)

// redisStore implements Store on Redis. Conversation logs are Redis lists
// with one list element per turn, so appending a human/assistant pair is a
// single RPUSH and can never be half-written. Every write refreshes the
// key's TTL; reads do not.
type redisStore struct {
	client         *redis.Client
	ttl            time.Duration
	maxStoredTurns int
}

// Set implements Store.
func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return storeErr("set", err)
	}
	return nil
}

// Get implements Store.
func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeErr("get", err)
	}
	return val, true, nil
}

// Delete implements Store.
func (s *redisStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, storeErr("delete", err)
	}
	return n > 0, nil
}

// AppendTurn implements Store. RPUSH, LTRIM and EXPIRE run in one MULTI/EXEC
// transaction so the append, the retention bound and the TTL refresh are
// applied together.
func (s *redisStore) AppendTurn(ctx context.Context, sessionID string, turn Turn) error {
	val, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	key := TurnsKey(sessionID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, val)
		pipe.LTrim(ctx, key, int64(-s.maxStoredTurns), -1)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return storeErr("append turn", err)
	}
	return nil
}

// ListTurns implements Store.
func (s *redisStore) ListTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	vals, err := s.client.LRange(ctx, TurnsKey(sessionID), 0, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("list turns", err)
	}

	turns := make([]Turn, 0, len(vals))
	for _, v := range vals {
		var turn Turn
		if err := json.Unmarshal([]byte(v), &turn); err != nil {
			return nil, fmt.Errorf("unmarshal turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// ClearTurns implements Store.
func (s *redisStore) ClearTurns(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Del(ctx, TurnsKey(sessionID)).Result()
	if err != nil {
		return false, storeErr("clear turns", err)
	}
	return n > 0, nil
}

// Close implements Store.
func (s *redisStore) Close() error {
	return s.client.Close()
}

// storeErr wraps a driver error so callers can match on ErrStoreUnavailable
// without depending on redis error types.
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", dialog.ErrStoreUnavailable, op, err)
}
