package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ontograph/pkg/cache"
	"github.com/matzehuels/ontograph/pkg/graph"
	"github.com/matzehuels/ontograph/pkg/observability"
	"github.com/matzehuels/ontograph/pkg/ontology"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → settle → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	snap, loadHit, err := r.LoadWithCacheInfo(ctx, opts)
	observability.Pipeline().OnLoadComplete(ctx, opts.Input(), snapshotSize(snap), time.Since(loadStart), err)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Snapshot = snap
	result.Stats.Ontology = snap.Stats()
	result.Stats.LoadTime = time.Since(loadStart)
	result.CacheInfo.LoadHit = loadHit

	r.Logger.Info("loaded snapshot",
		"input", opts.Input(),
		"classes", result.Stats.Ontology.Classes,
		"properties", result.Stats.Ontology.Properties,
		"individuals", result.Stats.Ontology.Individuals,
		"duration", result.Stats.LoadTime)

	// Stage 2: Settle
	layoutStart := time.Now()
	observability.Pipeline().OnLayoutStart(ctx, snapshotSize(snap))
	layout, hash, layoutHit, err := r.SettleWithCacheInfo(ctx, snap, opts)
	observability.Pipeline().OnLayoutComplete(ctx, layout.Steps, time.Since(layoutStart), err)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.SnapshotHash = hash
	result.Layout = layout
	result.Stats.Kinds = layout.Counts()
	result.Stats.NodeCount = len(layout.Nodes)
	result.Stats.EdgeCount = len(layout.Edges)
	result.Stats.Steps = layout.Steps
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.CacheInfo.LayoutHit = layoutHit

	r.Logger.Info("settled layout",
		"nodes", result.Stats.NodeCount,
		"steps", layout.Steps,
		"cached", layoutHit,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	renderStart := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, layout, opts)
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(renderStart), err)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// LoadWithCacheInfo loads the snapshot and reports whether it came from the
// cache. Only snapshots fetched from a Source are cached; files and request
// bodies are read directly.
func (r *Runner) LoadWithCacheInfo(ctx context.Context, opts Options) (*ontology.Snapshot, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLoad(); err != nil {
		return nil, false, err
	}
	if opts.Source == nil || opts.Name == "" {
		s, err := Load(ctx, opts)
		return s, false, err
	}

	cacheKey := r.Keyer.SnapshotKey(opts.Source.Kind(), opts.Name)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			s, err := ontology.Read(bytes.NewReader(data), ontology.FormatJSON)
			if err == nil {
				return s, true, nil // Cache hit
			}
		}
	}

	s, err := opts.Source.Load(ctx, opts.Name)
	if err != nil {
		return nil, false, err
	}

	var buf bytes.Buffer
	if err := ontology.WriteJSON(s, &buf); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, buf.Bytes(), cache.TTLSnapshot)
	}
	return s, false, nil // Cache miss
}

// SettleWithCacheInfo settles the snapshot's layout with caching. It returns
// the layout, the snapshot hash and whether the layout came from the cache.
func (r *Runner) SettleWithCacheInfo(ctx context.Context, s *ontology.Snapshot, opts Options) (graph.Layout, string, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return graph.Layout{}, "", false, err
	}

	hash, err := HashSnapshot(s)
	if err != nil {
		return graph.Layout{}, "", false, fmt.Errorf("hash snapshot: %w", err)
	}
	cacheKey := r.Keyer.LayoutKey(hash, opts.LayoutKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			cached, err := graph.UnmarshalLayout(data)
			if err == nil {
				return cached, hash, true, nil // Cache hit
			}
			// If deserialization fails, fall through to recompute
		}
	}

	layout, err := Settle(ctx, s, opts)
	if err != nil {
		return graph.Layout{}, hash, false, err
	}

	if data, err := graph.MarshalLayout(layout); err == nil {
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout)
	}
	return layout, hash, false, nil // Cache miss
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, layout graph.Layout, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	// Compute cache key from layout data
	layoutData, err := graph.MarshalLayout(layout)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(layoutData)

	// Try to get all formats from cache
	artifacts := make(map[string][]byte)
	if !opts.Refresh {
		for _, format := range opts.Formats {
			cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
			data, hit, err := r.Cache.Get(ctx, cacheKey)
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, true, nil // All artifacts from cache
		}
	}

	rendered, err := Render(ctx, layout, opts)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		_ = r.Cache.Set(ctx, cacheKey, data, cache.TTLArtifact)
	}
	return rendered, false, nil // Cache miss
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func snapshotSize(s *ontology.Snapshot) int {
	if s == nil {
		return 0
	}
	return len(s.Classes) + len(s.Properties) + len(s.Individuals)
}
