package store

import (
	"context"
	"errors"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcachedStore keeps the slot in memcached. Eviction can lose the queue,
// so it only suits deployments that accept that.
type MemcachedStore struct {
	client *memcache.Client
}

func NewMemcachedStore(client *memcache.Client) *MemcachedStore {
	return &MemcachedStore{client: client}
}

func (s *MemcachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	item, err := s.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

func (s *MemcachedStore) Put(ctx context.Context, key string, value []byte) error {
	return s.client.Set(&memcache.Item{
		Key:   key,
		Value: value,
	})
}

func (s *MemcachedStore) Forget(ctx context.Context, key string) error {
	err := s.client.Delete(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}
