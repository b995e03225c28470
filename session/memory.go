package session

import (
	"context"
	"sync"
	"time"
)

// memoryStore implements Store with an in-process map. Expiry is lazy: an
// entry past its deadline is treated as absent and dropped on the next
// access. Data does not survive a process restart.
type memoryStore struct {
	mu             sync.Mutex
	blobs          map[string]blobEntry
	logs           map[string]logEntry
	ttl            time.Duration
	maxStoredTurns int
	now            func() time.Time
}

type blobEntry struct {
	value     []byte
	expiresAt time.Time
}

type logEntry struct {
	turns     []Turn
	expiresAt time.Time
}

func newMemoryStore(config *storeConfig) *memoryStore {
	return &memoryStore{
		blobs:          make(map[string]blobEntry),
		logs:           make(map[string]logEntry),
		ttl:            config.ttl,
		maxStoredTurns: config.maxStoredTurns,
		now:            time.Now,
	}
}

// Set implements Store.
func (s *memoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.blobs[key] = blobEntry{value: stored, expiresAt: s.now().Add(ttl)}
	return nil
}

// Get implements Store. Reads do not refresh TTL.
func (s *memoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.blobs[key]
	if !ok {
		return nil, false, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.blobs, key)
		return nil, false, nil
	}
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true, nil
}

// Delete implements Store.
func (s *memoryStore) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.blobs[key]
	if !ok {
		return false, nil
	}
	delete(s.blobs, key)
	return !s.now().After(entry.expiresAt), nil
}

// AppendTurn implements Store. The whole pair lands under one lock
// acquisition, so a concurrent append can never interleave half a turn.
func (s *memoryStore) AppendTurn(ctx context.Context, sessionID string, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := TurnsKey(sessionID)
	entry, ok := s.logs[key]
	if !ok || s.now().After(entry.expiresAt) {
		entry = logEntry{}
	}

	entry.turns = append(entry.turns, turn)
	if len(entry.turns) > s.maxStoredTurns {
		entry.turns = entry.turns[len(entry.turns)-s.maxStoredTurns:]
	}
	entry.expiresAt = s.now().Add(s.ttl)
	s.logs[key] = entry
	return nil
}

// ListTurns implements Store.
func (s *memoryStore) ListTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := TurnsKey(sessionID)
	entry, ok := s.logs[key]
	if !ok {
		return nil, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.logs, key)
		return nil, nil
	}
	turns := make([]Turn, len(entry.turns))
	copy(turns, entry.turns)
	return turns, nil
}

// ClearTurns implements Store.
func (s *memoryStore) ClearTurns(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := TurnsKey(sessionID)
	entry, ok := s.logs[key]
	if !ok {
		return false, nil
	}
	delete(s.logs, key)
	return !s.now().After(entry.expiresAt), nil
}

// Close implements Store. The maps are reset rather than nilled so a late
// write after shutdown cannot panic.
func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs = make(map[string]blobEntry)
	s.logs = make(map[string]logEntry)
	return nil
}
