package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...StoreOption) Store {
	t.Helper()
	store, err := NewStore(StoreTypeMemory, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

	val, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)

	existed, err := store.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, existed)

	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, WithTTL(10*time.Millisecond))

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	require.NoError(t, store.AppendTurn(ctx, "s1", Turn{Human: "hi", Assistant: "hello"}))

	time.Sleep(30 * time.Millisecond)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	turns, err := store.ListTurns(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestMemoryStore_AppendTurnOrderAndTrim(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, WithMaxStoredTurns(3))

	for _, q := range []string{"one", "two", "three", "four", "five"} {
		require.NoError(t, store.AppendTurn(ctx, "s1", Turn{Human: q, Assistant: "re: " + q}))
	}

	turns, err := store.ListTurns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "three", turns[0].Human)
	assert.Equal(t, "five", turns[2].Human)
}

func TestMemoryStore_ConcurrentAppendsKeepPairsWhole(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, WithMaxStoredTurns(200))

	const appends = 100
	var wg sync.WaitGroup
	for i := 0; i < appends; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.AppendTurn(ctx, "s1", Turn{Human: "q", Assistant: "a"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	turns, err := store.ListTurns(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, appends)
	for _, turn := range turns {
		assert.NotEmpty(t, turn.Human)
		assert.NotEmpty(t, turn.Assistant)
	}
}

func TestMemoryStore_ClearTurns(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	existed, err := store.ClearTurns(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, existed)

	require.NoError(t, store.AppendTurn(ctx, "s1", Turn{Human: "q", Assistant: "a"}))

	existed, err = store.ClearTurns(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, existed)

	turns, err := store.ListTurns(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestMemoryStore_WriteAfterCloseDoesNotPanic(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(StoreTypeMemory)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, store.Close())

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", []byte("v2"), time.Minute))
	require.NoError(t, store.AppendTurn(ctx, "s1", Turn{Human: "q", Assistant: "a"}))
}

func TestNewStore_InvalidConfiguration(t *testing.T) {
	_, err := NewStore(StoreTypeRedis)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewStore(StoreType("cassandra"))
	assert.ErrorIs(t, err, ErrInvalidStoreType)
}

func TestKeysAreNamespaced(t *testing.T) {
	assert.Equal(t, "turns:abc", TurnsKey("abc"))
	assert.Equal(t, "asq:abc", ResultKey("abc"))
}
