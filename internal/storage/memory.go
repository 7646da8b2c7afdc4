package storage

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// MemoryBackend keeps values in process memory; nothing survives a restart.
type MemoryBackend struct {
	cache *cache.Cache
}

// NewMemoryBackend returns an empty backend whose entries never expire.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{cache: cache.New(cache.NoExpiration, 0)}
}

// Load returns a copy of the value under key.
func (b *MemoryBackend) Load(_ context.Context, key string) ([]byte, error) {
	x, found := b.cache.Get(key)
	if !found {
		return nil, ErrNotFound
	}
	return append([]byte(nil), x.([]byte)...), nil
}

// Save stores a copy of data under key.
func (b *MemoryBackend) Save(_ context.Context, key string, data []byte) error {
	b.cache.Set(key, append([]byte(nil), data...), cache.NoExpiration)
	return nil
}

// Close drops every entry.
func (b *MemoryBackend) Close() error {
	b.cache.Flush()
	return nil
}
