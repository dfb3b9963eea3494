package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachingStore(t *testing.T) {
	testStore(t, NewCachingStore(NewMemoryStore(), 1<<20))
}

func TestCachingStore_HitsAndInvalidation(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	s := NewCachingStore(inner, 1<<10)

	require.NoError(t, s.Put(ctx, "a", []byte("one")))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	got[0] = 'X'
	got, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got, "cached copy must not alias returned data")

	hits, misses := s.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	require.NoError(t, s.Put(ctx, "a", []byte("two")))
	got, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(0), s.Size())
}

func TestCachingStore_Eviction(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	s := NewCachingStore(inner, 10)

	require.NoError(t, inner.Put(ctx, "a", make([]byte, 6)))
	require.NoError(t, inner.Put(ctx, "b", make([]byte, 6)))
	require.NoError(t, inner.Put(ctx, "big", make([]byte, 11)))

	_, err := s.Get(ctx, "a")
	require.NoError(t, err)
	_, err = s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(6), s.Size(), "a is evicted to make room for b")

	_, err = s.Get(ctx, "big")
	require.NoError(t, err)
	assert.Equal(t, int64(6), s.Size(), "blobs larger than capacity are not cached")

	_, err = s.Get(ctx, "b")
	require.NoError(t, err)
	hits, _ := s.Stats()
	assert.Equal(t, int64(1), hits)
}
