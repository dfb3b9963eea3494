package blobstore

import (
	"container/list"
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

// CachingStore wraps a Store and keeps recently read blobs in memory, up to
// a total capacity in bytes. Writes and deletes through the CachingStore
// invalidate the cached copy; writes made directly to the inner store are not
// observed.
type CachingStore struct {
	inner Store

	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[string]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	name  string
	value []byte
}

var _ Store = (*CachingStore)(nil)

// NewCachingStore creates a CachingStore over inner holding at most
// capacity bytes.
func NewCachingStore(inner Store, capacity int64) *CachingStore {
	return &CachingStore{
		inner:     inner,
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
	}
}

// Get returns a copy of the cached blob, reading through on a miss.
func (s *CachingStore) Get(ctx context.Context, name string) ([]byte, error) {
	if data, ok := s.lookup(name); ok {
		return data, nil
	}

	data, err := s.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	s.set(name, slices.Clone(data))
	return data, nil
}

// Put writes through and drops the cached copy.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.invalidate(name)
	return s.inner.Put(ctx, name, data)
}

// Delete deletes through and drops the cached copy.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.invalidate(name)
	return s.inner.Delete(ctx, name)
}

// List is not cached.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Stats returns cache hit and miss counts.
func (s *CachingStore) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}

// Size returns the bytes currently cached.
func (s *CachingStore) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

func (s *CachingStore) lookup(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.items[name]; ok {
		s.hits.Add(1)
		s.evictList.MoveToFront(ent)
		return slices.Clone(ent.Value.(*cacheEntry).value), true
	}
	s.misses.Add(1)
	return nil, false
}

func (s *CachingStore) set(name string, b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	itemSize := int64(len(b))
	// Items larger than the whole cache are never cached.
	if itemSize > s.capacity {
		return
	}
	if ent, ok := s.items[name]; ok {
		s.removeElement(ent)
	}
	for s.size+itemSize > s.capacity {
		ent := s.evictList.Back()
		if ent == nil {
			break
		}
		s.removeElement(ent)
	}

	s.items[name] = s.evictList.PushFront(&cacheEntry{name: name, value: b})
	s.size += itemSize
}

func (s *CachingStore) invalidate(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.items[name]; ok {
		s.removeElement(ent)
	}
}

func (s *CachingStore) removeElement(e *list.Element) {
	s.evictList.Remove(e)
	kv := e.Value.(*cacheEntry)
	delete(s.items, kv.name)
	s.size -= int64(len(kv.value))
}
