package tiles

import (
	"context"
	"io"

	"github.com/jaennil/tileserve/pkg/logger"
	"github.com/jaennil/tileserve/pkg/metrics"
)

type TileCacheKey struct {
	X int
	Y int
	Z int
}

type TileCache interface {
	Get(context.Context, TileCacheKey) ([]byte, bool, error)
	Set(context.Context, TileCacheKey, []byte) error
}

// CachedSource answers tile lookups from a TileCache and falls back to the
// wrapped source on a miss. Cache failures are logged and never fail the
// lookup. Missing tiles are not cached.
type CachedSource struct {
	Source
	cache  TileCache
	logger logger.Logger
}

func NewCachedSource(src Source, cache TileCache, l logger.Logger) *CachedSource {
	return &CachedSource{
		Source: src,
		cache:  cache,
		logger: l,
	}
}

func (s *CachedSource) Tile(ctx context.Context, z, x, y int) ([]byte, bool, error) {
	key := TileCacheKey{X: x, Y: y, Z: z}

	data, exists, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.TileCacheErrors.WithLabelValues("get").Inc()
		s.logger.Warn("failed to check tile cache, will ask the source", "z", z, "x", x, "y", y, "error", err)
	} else if exists {
		metrics.TileCacheHits.Inc()
		return data, true, nil
	}

	metrics.TileCacheMisses.Inc()

	data, exists, err = s.Source.Tile(ctx, z, x, y)
	if err != nil || !exists {
		return data, exists, err
	}

	if err := s.cache.Set(ctx, key, data); err != nil {
		metrics.TileCacheErrors.WithLabelValues("set").Inc()
		s.logger.Warn("failed to store tile in cache", "z", z, "x", x, "y", y, "error", err)
	}

	return data, true, nil
}

func (s *CachedSource) Close() error {
	err := s.Source.Close()
	if closer, ok := s.cache.(io.Closer); ok {
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
