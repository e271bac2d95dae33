package cache

import (
	"context"
	"time"
)

// ScopedKeyer wraps a Keyer with a prefix so several deployments can share
// one Redis database without colliding.
//
// Example usage:
//
//	// Keys for the staging server
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// SnapshotKey generates a prefixed key for remote snapshot caching.
func (k *ScopedKeyer) SnapshotKey(source, name string) string {
	return k.prefix + k.inner.SnapshotKey(source, name)
}

// LayoutKey generates a prefixed key for layout caching.
func (k *ScopedKeyer) LayoutKey(snapshotHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(snapshotHash, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(layoutHash, opts)
}

// MaxTTL wraps a Cache and caps the ttl of every Set. Entries that would
// never expire get the cap as well.
type MaxTTL struct {
	Cache
	max time.Duration
}

// NewMaxTTL caps the ttl of entries written to inner. A non-positive max
// returns inner unchanged.
func NewMaxTTL(inner Cache, max time.Duration) Cache {
	if max <= 0 {
		return inner
	}
	return &MaxTTL{Cache: inner, max: max}
}

// Set stores data with ttl capped at the maximum.
func (c *MaxTTL) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 || ttl > c.max {
		ttl = c.max
	}
	return c.Cache.Set(ctx, key, data, ttl)
}
