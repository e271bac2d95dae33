// Package cache stores pipeline results keyed by content hashes.
//
// Three backends implement [Cache]: [FileCache] for the CLI, [RedisCache]
// shared between server instances, and [NullCache] when caching is off.
// A [Keyer] derives keys from snapshot hashes and render options so that any
// option that changes the output also changes the key.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default time-to-live per entry type.
const (
	TTLSnapshot = time.Hour
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// LayoutKeyOpts holds every option that changes a settled layout.
type LayoutKeyOpts struct {
	Width       float64 `json:"w"`
	Height      float64 `json:"h"`
	Steps       int     `json:"steps"`
	Repulsion   float64 `json:"kr"`
	Attraction  float64 `json:"ka"`
	Damping     float64 `json:"damp"`
	MinDistance float64 `json:"dmin"`
}

// ArtifactKeyOpts holds every option that changes a rendered artifact.
type ArtifactKeyOpts struct {
	Format   string  `json:"format"`
	Scale    float64 `json:"scale,omitempty"`
	Zoom     float64 `json:"zoom,omitempty"`
	Selected string  `json:"selected,omitempty"`
	Legend   bool    `json:"legend,omitempty"`
	Captions bool    `json:"captions,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	// SnapshotKey names a snapshot fetched from a remote source.
	SnapshotKey(source, name string) string

	// LayoutKey names the settled layout of a snapshot.
	LayoutKey(snapshotHash string, opts LayoutKeyOpts) string

	// ArtifactKey names a rendered artifact of a layout.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard Keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// SnapshotKey returns "snapshot:source:name".
func (DefaultKeyer) SnapshotKey(source, name string) string {
	return fmt.Sprintf("snapshot:%s:%s", source, name)
}

// LayoutKey hashes the snapshot hash with the layout options.
func (DefaultKeyer) LayoutKey(snapshotHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", snapshotHash, opts)
}

// ArtifactKey hashes the layout hash with the artifact options.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}

var _ Keyer = DefaultKeyer{}
