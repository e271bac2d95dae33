package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/ontograph/pkg/cache"
	"github.com/matzehuels/ontograph/pkg/config"
	"github.com/matzehuels/ontograph/pkg/graph"
	errs "github.com/matzehuels/ontograph/pkg/errors"
	"github.com/matzehuels/ontograph/pkg/layout/force"
	"github.com/matzehuels/ontograph/pkg/ontology"
	"github.com/matzehuels/ontograph/pkg/source"
)

func pizza() *ontology.Snapshot {
	return &ontology.Snapshot{
		Name: "pizza",
		Classes: []ontology.Class{
			{ID: "Pizza"},
			{ID: "Topping"},
			{ID: "Margherita", SuperClasses: []string{"Pizza"}},
		},
		Properties: []ontology.Property{
			{ID: "hasTopping", Type: ontology.ObjectProperty, Domain: []string{"Pizza"}},
		},
		Individuals: []ontology.Individual{
			{ID: "mozzarella", Types: []string{"Topping"}},
		},
	}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"png", false},
		{"svg", false},
		{"dot", false},
		{"json", false},
		{"pdf", true},
		{"PNG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errs.Is(err, errs.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %v", tt.format, errs.GetCode(err))
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "png"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}

	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}

	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestOptionsValidateForLoad(t *testing.T) {
	src := source.Func{KindName: "test"}
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"path", Options{Path: "pizza.json"}, false},
		{"snapshot", Options{Snapshot: pizza()}, false},
		{"source", Options{Name: "pizza", Source: src}, false},
		{"nothing", Options{}, true},
		{"two inputs", Options{Path: "pizza.json", Snapshot: pizza()}, true},
		{"name without source", Options{Name: "pizza"}, true},
		{"bad extension", Options{Path: "pizza.owl"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateForLoad()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateForLoad() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptionsValidateAndSetDefaultsIdempotent(t *testing.T) {
	opts := Options{Snapshot: pizza()}

	// First call
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("First validation failed: %v", err)
	}

	originalWidth := opts.Width
	originalForce := opts.Force

	// Second call should be idempotent
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("Second validation failed: %v", err)
	}

	if opts.Width != originalWidth {
		t.Error("Width changed on second call")
	}
	if opts.Force != originalForce {
		t.Error("Force changed on second call")
	}
}

func TestSetLayoutDefaults(t *testing.T) {
	sim := force.DefaultConfig()
	sim.MaxSteps = 50
	opts := Options{Force: sim}
	opts.SetLayoutDefaults()

	if opts.Width != DefaultWidth {
		t.Errorf("Width should be %f, got %f", DefaultWidth, opts.Width)
	}
	if opts.Height != DefaultHeight {
		t.Errorf("Height should be %f, got %f", DefaultHeight, opts.Height)
	}
	if opts.Force.MaxSteps != 50 {
		t.Errorf("MaxSteps should be kept, got %d", opts.Force.MaxSteps)
	}
	if opts.Force.Damping != force.DefaultConfig().Damping {
		t.Errorf("Damping should be kept, got %f", opts.Force.Damping)
	}

	unset := Options{}
	unset.SetLayoutDefaults()
	if unset.Force != force.DefaultConfig() {
		t.Errorf("unset Force = %+v, want defaults", unset.Force)
	}
}

func TestSettleReportsProgress(t *testing.T) {
	sim := force.DefaultConfig()
	sim.MaxSteps = 12
	var last, calls int
	opts := Options{Force: sim, Progress: func(step, total int) {
		calls++
		last = step
		if total != 12 {
			t.Errorf("total = %d, want 12", total)
		}
	}}
	if _, err := Settle(context.Background(), pizza(), opts); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if calls != 12 || last != 12 {
		t.Errorf("calls = %d, last = %d, want 12, 12", calls, last)
	}
}

func TestSettleHonorsZeroBudget(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.MaxSteps = 0
	cfg.Simulation.Attraction = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	l, err := Settle(context.Background(), pizza(), Options{Force: cfg.Simulation})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if l.Steps != 0 {
		t.Errorf("steps = %d, want 0", l.Steps)
	}
}

func TestSetRenderDefaults(t *testing.T) {
	opts := Options{}
	opts.SetRenderDefaults()

	if len(opts.Formats) != 1 || opts.Formats[0] != "png" {
		t.Errorf("Formats should be [png], got %v", opts.Formats)
	}
	if opts.Scale != DefaultScale || opts.Zoom != DefaultZoom {
		t.Errorf("Scale, Zoom = %f, %f", opts.Scale, opts.Zoom)
	}
}

func TestValidateForRenderRejectsHugeSurface(t *testing.T) {
	opts := Options{Width: 10000, Height: 800, Scale: 2}
	if err := opts.ValidateForRender(); err == nil {
		t.Error("20000px wide surface should fail")
	}
}

func TestKeyOptsFollowOptions(t *testing.T) {
	a := Options{Snapshot: pizza()}
	b := Options{Snapshot: pizza(), Force: force.DefaultConfig()}
	b.Force.MaxSteps = 10
	a.SetLayoutDefaults()
	b.SetLayoutDefaults()
	if a.LayoutKeyOpts() == b.LayoutKeyOpts() {
		t.Error("step budget should change the layout key")
	}

	a.Selected = "Pizza"
	if a.ArtifactKeyOpts("png") == b.ArtifactKeyOpts("png") {
		t.Error("selection should change the artifact key")
	}
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, nil)

	opts := Options{
		Snapshot: pizza(),
		Width:    400,
		Height:   300,
		Formats:  []string{"png", "dot", "json", "svg"},
		Selected: "Pizza",
	}
	res, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if res.Stats.NodeCount != 5 || res.Stats.EdgeCount != 3 {
		t.Errorf("nodes, edges = %d, %d, want 5, 3", res.Stats.NodeCount, res.Stats.EdgeCount)
	}
	if res.Stats.Steps != force.DefaultMaxSteps {
		t.Errorf("steps = %d, want %d", res.Stats.Steps, force.DefaultMaxSteps)
	}
	if res.Stats.Ontology.Classes != 3 || res.Stats.Ontology.ObjectProperties != 1 {
		t.Errorf("ontology stats = %+v", res.Stats.Ontology)
	}
	if k := res.Stats.Kinds; k[graph.KindClass] != 3 || k[graph.KindProperty] != 1 || k[graph.KindIndividual] != 1 {
		t.Errorf("kinds = %v, want 3 classes, 1 property, 1 individual", k)
	}
	if res.CacheInfo.LayoutHit || res.CacheInfo.RenderHit {
		t.Error("first run should miss the cache")
	}
	if !strings.HasPrefix(string(res.Artifacts["png"]), "\x89PNG") {
		t.Error("png artifact is not PNG")
	}
	if !strings.Contains(string(res.Artifacts["dot"]), `"Margherita" -> "Pizza"`) {
		t.Error("dot artifact missing subclass edge")
	}
	if !strings.Contains(string(res.Artifacts["svg"]), "<svg") {
		t.Error("svg artifact is not SVG")
	}
	if !strings.Contains(string(res.Artifacts["json"]), `"steps": 300`) {
		t.Error("json artifact missing steps")
	}

	// Second run with an equal snapshot hits both caches.
	opts.Snapshot = pizza()
	res2, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if !res2.CacheInfo.LayoutHit || !res2.CacheInfo.RenderHit {
		t.Errorf("second run cache info = %+v", res2.CacheInfo)
	}
	if res2.Stats.Kinds[graph.KindClass] != 3 {
		t.Errorf("cached kinds = %v", res2.Stats.Kinds)
	}
	if res2.SnapshotHash != res.SnapshotHash {
		t.Error("equal snapshots hashed differently")
	}
	if string(res2.Artifacts["dot"]) != string(res.Artifacts["dot"]) {
		t.Error("cached dot differs")
	}

	// Refresh bypasses the cache.
	opts.Refresh = true
	res3, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if res3.CacheInfo.LayoutHit || res3.CacheInfo.RenderHit {
		t.Error("refresh should bypass the cache")
	}
}

func TestSettleIsDeterministic(t *testing.T) {
	ctx := context.Background()
	opts := Options{Snapshot: pizza()}
	a, err := Settle(ctx, pizza(), opts)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Settle(ctx, pizza(), opts)
	for i := range a.Nodes {
		if a.Nodes[i].Pos != b.Nodes[i].Pos {
			t.Fatalf("node %s settled at %v and %v", a.Nodes[i].ID, a.Nodes[i].Pos, b.Nodes[i].Pos)
		}
	}
	if a.Name != "pizza" || a.Width != DefaultWidth {
		t.Errorf("layout header = %q %v", a.Name, a.Width)
	}
}

func TestSettleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Settle(ctx, pizza(), Options{}); err == nil {
		t.Error("Settle with canceled context should fail")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pizza.yaml")
	doc := "classes:\n  - id: Pizza\n  - id: Margherita\n    superClasses: [Pizza]\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(context.Background(), Options{Path: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.Classes) != 2 || s.Classes[1].SuperClasses[0] != "Pizza" {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestLoadFromSourceIsCached(t *testing.T) {
	ctx := context.Background()
	calls := 0
	src := source.Func{
		KindName: "test",
		LoadFunc: func(ctx context.Context, name string) (*ontology.Snapshot, error) {
			calls++
			s := pizza()
			s.Name = name
			return s, nil
		},
	}
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, nil)

	opts := Options{Name: "pizza", Source: src}
	if _, hit, err := r.LoadWithCacheInfo(ctx, opts); err != nil || hit {
		t.Fatalf("first load hit=%v err=%v", hit, err)
	}
	s, hit, err := r.LoadWithCacheInfo(ctx, opts)
	if err != nil || !hit {
		t.Fatalf("second load hit=%v err=%v", hit, err)
	}
	if calls != 1 {
		t.Errorf("source called %d times, want 1", calls)
	}
	if len(s.Classes) != 3 || s.Name != "pizza" {
		t.Errorf("cached snapshot = %+v", s)
	}
}
