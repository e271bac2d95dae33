package cache

import (
	"context"
	"time"
)

// NullCache stores nothing. Every Get misses, so a runner built on it
// settles and renders from scratch on each call, as with --no-cache.
// Like the network backends it reports a canceled context as an error.
type NullCache struct{}

// NewNullCache returns a cache that never hits.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(ctx context.Context, _ string) ([]byte, bool, error) {
	return nil, false, ctx.Err()
}

func (NullCache) Set(ctx context.Context, _ string, _ []byte, _ time.Duration) error {
	return ctx.Err()
}

func (NullCache) Delete(ctx context.Context, _ string) error { return ctx.Err() }

func (NullCache) Close() error { return nil }

var _ Cache = NullCache{}
