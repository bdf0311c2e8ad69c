package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLStoreRoundTrip(t *testing.T) {
	store := NewTTLStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "k", []byte("v"), time.Minute))
	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), value)

	require.NoError(t, store.Expire(ctx, "k"))
	_, ok, _ = store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestTTLStoreExpiry(t *testing.T) {
	store := NewTTLStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(25 * time.Millisecond)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPopulateSingleFetchUnderConcurrency(t *testing.T) {
	store := NewTTLStore(time.Minute)
	defer store.Close()
	populate := NewPopulate(store, time.Minute)

	var fetches atomic.Int64
	fetch := func(context.Context) ([]byte, error) {
		fetches.Add(1)
		time.Sleep(10 * time.Millisecond)
		return []byte("payload"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, _, err := populate.GetOrFetch(context.Background(), "k", fetch)
			assert.NoError(t, err)
			assert.Equal(t, []byte("payload"), value)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), fetches.Load())
}

func TestPopulateReportsHit(t *testing.T) {
	store := NewTTLStore(time.Minute)
	defer store.Close()
	populate := NewPopulate(store, time.Minute)
	fetch := func(context.Context) ([]byte, error) { return []byte("v"), nil }

	_, hit, err := populate.GetOrFetch(context.Background(), "k", fetch)
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = populate.GetOrFetch(context.Background(), "k", fetch)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestPopulatePropagatesFetchError(t *testing.T) {
	store := NewTTLStore(time.Minute)
	defer store.Close()
	populate := NewPopulate(store, time.Minute)

	boom := errors.New("upstream down")
	_, _, err := populate.GetOrFetch(context.Background(), "k", func(context.Context) ([]byte, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	// A failed fetch must not poison the key.
	value, _, err := populate.GetOrFetch(context.Background(), "k", func(context.Context) ([]byte, error) {
		return []byte("recovered"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("recovered"), value)
}
