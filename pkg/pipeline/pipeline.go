// Package pipeline provides the batch pipeline for ontograph.
//
// This package implements the complete load → settle → render pipeline used
// by the CLI render command and the server's /render endpoint. By
// centralizing this logic, both entry points share defaults, validation and
// caching.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: read a snapshot from a file, a [source.Source] or the request
//  2. Settle: build the graph model and run the force simulation to the end
//     of its step budget
//  3. Render: produce artifacts (PNG, SVG, DOT, JSON) from the settled layout
//
// Settled layouts are cached by snapshot hash and simulation options;
// artifacts by layout hash and render options.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Path:    "pizza.json",
//	    Formats: []string{"png", "svg"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	png := result.Artifacts["png"]
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ontograph/pkg/cache"
	errs "github.com/matzehuels/ontograph/pkg/errors"
	"github.com/matzehuels/ontograph/pkg/export"
	"github.com/matzehuels/ontograph/pkg/graph"
	"github.com/matzehuels/ontograph/pkg/layout/force"
	"github.com/matzehuels/ontograph/pkg/ontology"
	"github.com/matzehuels/ontograph/pkg/source"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultWidth is the default surface width in CSS pixels.
	DefaultWidth = 1200.0

	// DefaultHeight is the default surface height in CSS pixels.
	DefaultHeight = 800.0

	// DefaultScale is the default device scale of raster output.
	DefaultScale = 1.0

	// DefaultZoom is the zoom raster output is drawn at.
	DefaultZoom = 1.0
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	export.FormatPNG:  true,
	export.FormatSVG:  true,
	export.FormatDOT:  true,
	export.FormatJSON: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the batch pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options. Exactly one of Path, Name (with Source) or Snapshot
	// selects the input.
	Path    string `json:"path,omitempty"`
	Name    string `json:"name,omitempty"`
	Refresh bool   `json:"refresh,omitempty"`

	// Settle options
	Width  float64      `json:"width,omitempty"`
	Height float64      `json:"height,omitempty"`
	Force  force.Config `json:"force,omitzero"`

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Scale    float64  `json:"scale,omitempty"`
	Zoom     float64  `json:"zoom,omitempty"`
	Selected string   `json:"selected,omitempty"`
	Legend   bool     `json:"legend,omitempty"`
	Captions bool     `json:"captions,omitempty"`

	// Runtime options (not serialized)
	Snapshot *ontology.Snapshot `json:"-"`
	Source   source.Source      `json:"-"`
	Logger   *log.Logger        `json:"-"`

	// Progress, when set, is called after every simulation step of a
	// settle that missed the cache.
	Progress func(step, total int) `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Snapshot is the loaded snapshot.
	Snapshot *ontology.Snapshot

	// SnapshotHash is the content hash of the snapshot.
	SnapshotHash string

	// Layout is the settled layout.
	Layout graph.Layout

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Ontology   ontology.Stats
	Kinds      map[graph.NodeKind]int // nodes per kind in the settled layout
	NodeCount  int
	EdgeCount  int
	Steps      int
	LoadTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LoadHit   bool // Whether the snapshot came from cache
	LayoutHit bool // Whether the settled layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errs.New(errs.ErrCodeInvalidFormat, "invalid format: %q (must be one of: png, svg, dot, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks that exactly one input is selected.
func (o *Options) ValidateForLoad() error {
	inputs := 0
	if o.Snapshot != nil {
		inputs++
	}
	if o.Path != "" {
		inputs++
		if err := errs.ValidateSnapshotPath(o.Path); err != nil {
			return err
		}
	}
	if o.Name != "" {
		inputs++
		if o.Source == nil {
			return errs.New(errs.ErrCodeInvalidInput, "snapshot name %q given without a source", o.Name)
		}
	}
	if inputs != 1 {
		return errs.New(errs.ErrCodeInvalidInput, "exactly one of path, name or snapshot is required")
	}
	o.setLogger()
	return nil
}

// SetLayoutDefaults sets default values for layout computation.
func (o *Options) SetLayoutDefaults() {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	o.Force = o.Force.WithDefaults()
	o.setLogger()
}

// ValidateForLayout validates and sets defaults for layout computation.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	return errs.ValidateDimensions(o.Width, o.Height)
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{export.FormatPNG}
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	if o.Zoom == 0 {
		o.Zoom = DefaultZoom
	}
	o.setLogger()
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetLayoutDefaults()
	o.SetRenderDefaults()
	if err := errs.ValidateDimensions(o.Width*o.Scale, o.Height*o.Scale); err != nil {
		return err
	}
	return ValidateFormats(o.Formats)
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Width:       o.Width,
		Height:      o.Height,
		Steps:       o.Force.MaxSteps,
		Repulsion:   o.Force.Repulsion,
		Attraction:  o.Force.Attraction,
		Damping:     o.Force.Damping,
		MinDistance: o.Force.MinDistance,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:   format,
		Scale:    o.Scale,
		Zoom:     o.Zoom,
		Selected: o.Selected,
		Legend:   o.Legend,
		Captions: o.Captions,
	}
}

// Input describes the selected input for logs.
func (o *Options) Input() string {
	switch {
	case o.Snapshot != nil:
		return "request"
	case o.Path != "":
		return o.Path
	case o.Source != nil:
		return fmt.Sprintf("%s:%s", o.Source.Kind(), o.Name)
	default:
		return ""
	}
}
