package tiles

import (
	"context"
	"sync"
)

// TypedSyncMap is a sync.Map restricted to one key and value type.
type TypedSyncMap[K comparable, V any] struct {
	m sync.Map
}

func (t *TypedSyncMap[K, V]) Load(k K) (V, bool) {
	v, ok := t.m.Load(k)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

func (t *TypedSyncMap[K, V]) Store(k K, v V) {
	t.m.Store(k, v)
}

// MapCache keeps tiles in process memory for the lifetime of the server.
// Entries are never evicted.
type MapCache struct {
	tiles TypedSyncMap[TileCacheKey, []byte]
}

var _ TileCache = (*MapCache)(nil)

func NewMapCache() *MapCache {
	return &MapCache{}
}

func (c *MapCache) Get(_ context.Context, k TileCacheKey) ([]byte, bool, error) {
	data, ok := c.tiles.Load(k)
	return data, ok, nil
}

func (c *MapCache) Set(_ context.Context, k TileCacheKey, data []byte) error {
	c.tiles.Store(k, data)
	return nil
}
