package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/ontograph/pkg/observability"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	key := NewDefaultKeyer().LayoutKey("abc123", LayoutKeyOpts{Width: 800, Height: 600, Steps: 300})
	if err := c.Set(ctx, key, []byte(`{"steps":300}`), TTLLayout); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, key)
	if err != nil || hit || data != nil {
		t.Errorf("Get after Set = %q, %v, %v, want a miss", data, hit, err)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Errorf("Delete: %v", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, _, err := c.Get(canceled, key); err != context.Canceled {
		t.Errorf("Get on canceled context = %v, want context.Canceled", err)
	}
	if err := c.Set(canceled, key, nil, 0); err != context.Canceled {
		t.Errorf("Set on canceled context = %v, want context.Canceled", err)
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	// SnapshotKey
	if got := k.SnapshotKey("mongo", "pizza"); got != "snapshot:mongo:pizza" {
		t.Errorf("SnapshotKey unexpected: %s", got)
	}

	// LayoutKey should include options in hash
	lk1 := k.LayoutKey("hash123", LayoutKeyOpts{Width: 800, Height: 600, Steps: 300})
	lk2 := k.LayoutKey("hash123", LayoutKeyOpts{Width: 800, Height: 600, Steps: 100})
	if lk1 == lk2 {
		t.Error("Different LayoutKeyOpts should produce different keys")
	}
	if !strings.HasPrefix(lk1, "layout:") {
		t.Errorf("LayoutKey should be prefixed: %s", lk1)
	}
	if lk1 != k.LayoutKey("hash123", LayoutKeyOpts{Width: 800, Height: 600, Steps: 300}) {
		t.Error("LayoutKey should be deterministic")
	}

	// ArtifactKey
	ak1 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "svg"})
	ak2 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "png"})
	ak3 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "png", Selected: "A"})
	if ak1 == ak2 || ak2 == ak3 {
		t.Error("Different ArtifactKeyOpts should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "staging:")

	// All keys should be prefixed
	if got := scoped.SnapshotKey("mongo", "pizza"); got != "staging:snapshot:mongo:pizza" {
		t.Errorf("ScopedKeyer SnapshotKey unexpected: %s", got)
	}

	layoutKey := scoped.LayoutKey("abc", LayoutKeyOpts{})
	if layoutKey != "staging:"+inner.LayoutKey("abc", LayoutKeyOpts{}) {
		t.Errorf("ScopedKeyer LayoutKey should be prefixed: %s", layoutKey)
	}

	artifactKey := scoped.ArtifactKey("abc", ArtifactKeyOpts{Format: "png"})
	if !strings.HasPrefix(artifactKey, "staging:artifact:") {
		t.Errorf("ScopedKeyer ArtifactKey should be prefixed: %s", artifactKey)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.SnapshotKey("file", "x")
	if key != "prefix:snapshot:file:x" {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "missing"); err != nil || hit {
		t.Errorf("Get(missing) = hit %v, err %v", hit, err)
	}

	if err := c.Set(ctx, "layout:a", []byte("payload"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "layout:a")
	if err != nil || !hit || string(data) != "payload" {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}

	// Expired entries are misses and are removed.
	if err := c.Set(ctx, "layout:old", []byte("x"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "layout:old"); hit {
		t.Error("expired entry should be a miss")
	}
	if _, err := os.Stat(c.path("layout:old")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}

	// Corrupt entries are misses.
	if err := os.WriteFile(c.path("layout:a"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "layout:a"); hit {
		t.Error("corrupt entry should be a miss")
	}

	if err := c.Delete(ctx, "never-set"); err != nil {
		t.Errorf("Delete(missing) = %v", err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear() = %d, want 3", n)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("entry survived Clear")
	}
	entries, _ := os.ReadDir(c.Dir())
	if len(entries) != 0 {
		t.Errorf("Clear left %d directories", len(entries))
	}
}

func TestInstrumented(t *testing.T) {
	ctx := context.Background()
	hooks := &countingHooks{}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	inner, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := NewInstrumented(inner)

	c.Get(ctx, "layout:x")
	c.Set(ctx, "layout:x", []byte("1234"), 0)
	c.Get(ctx, "layout:x")
	c.Get(ctx, "plain")

	if hooks.hits["layout"] != 1 || hooks.misses["layout"] != 1 || hooks.misses["other"] != 1 {
		t.Errorf("hits = %v, misses = %v", hooks.hits, hooks.misses)
	}
	if hooks.bytes != 4 {
		t.Errorf("bytes set = %d, want 4", hooks.bytes)
	}
}

type countingHooks struct {
	observability.NoopCacheHooks
	hits, misses map[string]int
	bytes        int
}

func (h *countingHooks) OnCacheHit(_ context.Context, kind string) {
	if h.hits == nil {
		h.hits = map[string]int{}
	}
	h.hits[kind]++
}

func (h *countingHooks) OnCacheMiss(_ context.Context, kind string) {
	if h.misses == nil {
		h.misses = map[string]int{}
	}
	h.misses[kind]++
}

func (h *countingHooks) OnCacheSet(_ context.Context, _ string, size int) { h.bytes += size }

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("ONTOGRAPH_REDIS_ADDR")
	if addr == "" {
		t.Skip("ONTOGRAPH_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, RedisConfig{Addr: addr, Prefix: "ontograph-test:"})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()

	key := "artifact:" + Hash([]byte(t.Name()))
	defer c.Delete(ctx, key)

	if _, hit, err := c.Get(ctx, key); err != nil || hit {
		t.Fatalf("Get before Set = hit %v, err %v", hit, err)
	}
	if err := c.Set(ctx, key, []byte("png"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, key)
	if err != nil || !hit || string(data) != "png" {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}
}

func TestRetryableError(t *testing.T) {
	// Retryable(nil) returns nil
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	// Non-nil error is wrapped
	err := Retryable(ErrNetwork)
	if err == nil {
		t.Fatal("Retryable should return wrapped error")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}

	// Error message is preserved
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}

	// Non-wrapped errors are not retryable
	if IsRetryable(ErrNetwork) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	// Success on first try
	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should call once: %d", calls)
	}

	// Non-retryable error stops immediately
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return ErrNetwork
	})
	if err != ErrNetwork {
		t.Errorf("Should return non-retryable error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should not retry non-retryable error: %d", calls)
	}

	// Retryable error triggers retries
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("Should retry once: %d", calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}

type ttlRecorder struct {
	NullCache
	ttls []time.Duration
}

func (r *ttlRecorder) Set(_ context.Context, _ string, _ []byte, ttl time.Duration) error {
	r.ttls = append(r.ttls, ttl)
	return nil
}

func TestMaxTTL(t *testing.T) {
	ctx := context.Background()
	rec := &ttlRecorder{}
	c := NewMaxTTL(rec, time.Hour)

	for _, ttl := range []time.Duration{time.Minute, 7 * 24 * time.Hour, 0} {
		if err := c.Set(ctx, "k", nil, ttl); err != nil {
			t.Fatal(err)
		}
	}
	want := []time.Duration{time.Minute, time.Hour, time.Hour}
	for i, got := range rec.ttls {
		if got != want[i] {
			t.Errorf("ttl[%d] = %v, want %v", i, got, want[i])
		}
	}

	if NewMaxTTL(rec, 0) != Cache(rec) {
		t.Error("NewMaxTTL(c, 0) should return c")
	}
}
