package cache

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/ontograph/pkg/observability"
)

// Instrumented reports hits, misses and writes of an inner cache to the
// registered observability hooks. The key type is the key prefix up to the
// first colon ("layout", "artifact", "snapshot").
type Instrumented struct {
	inner Cache
}

// NewInstrumented wraps c. A nil c is replaced by a NullCache.
func NewInstrumented(c Cache) *Instrumented {
	if c == nil {
		c = NewNullCache()
	}
	return &Instrumented{inner: c}
}

func keyType(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}

// Get implements Cache.
func (c *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, hit, err := c.inner.Get(ctx, key)
	if err == nil {
		if hit {
			observability.Cache().OnCacheHit(ctx, keyType(key))
		} else {
			observability.Cache().OnCacheMiss(ctx, keyType(key))
		}
	}
	return data, hit, err
}

// Set implements Cache.
func (c *Instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.inner.Set(ctx, key, data, ttl)
	if err == nil {
		observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
	}
	return err
}

// Delete implements Cache.
func (c *Instrumented) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}

// Close implements Cache.
func (c *Instrumented) Close() error { return c.inner.Close() }

var _ Cache = (*Instrumented)(nil)
