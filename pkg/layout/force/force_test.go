package force

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/matzehuels/ontograph/pkg/geom"
	"github.com/matzehuels/ontograph/pkg/graph"
	"github.com/matzehuels/ontograph/pkg/ontology"
)

func pair(a, b geom.Vec, linked bool) *graph.Model {
	s := &ontology.Snapshot{Classes: []ontology.Class{{ID: "a"}, {ID: "b"}}}
	if linked {
		s.Classes[0].SuperClasses = []string{"b"}
	}
	m := graph.Build(s)
	m.Nodes[0].Pos = a
	m.Nodes[1].Pos = b
	return m
}

func smallGraph() *graph.Model {
	return graph.Build(&ontology.Snapshot{
		Classes: []ontology.Class{
			{ID: "Food"},
			{ID: "Pizza", SuperClasses: []string{"Food"}},
			{ID: "Topping", SuperClasses: []string{"Food"}},
			{ID: "Cheese", SuperClasses: []string{"Topping", "Ghost"}},
		},
		Properties: []ontology.Property{
			{ID: "hasTopping", Type: ontology.ObjectProperty, Domain: []string{"Pizza"}},
			{ID: "calories", Type: ontology.DataProperty, Domain: []string{"Food"}},
		},
		Individuals: []ontology.Individual{
			{ID: "margherita", Types: []string{"Pizza"}},
			{ID: "mozzarella", Types: []string{"Cheese"}},
		},
	})
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestDefaultConfig(t *testing.T) {
	got := New(smallGraph(), Config{}).Config()
	if got != DefaultConfig() {
		t.Errorf("Config() = %+v, want %+v", got, DefaultConfig())
	}
	custom := DefaultConfig()
	custom.Attraction = 0
	if got := New(smallGraph(), custom).Config(); got != custom {
		t.Errorf("Config() = %+v, want %+v", got, custom)
	}
}

func TestZeroBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSteps = 0
	m := smallGraph()
	start := m.Nodes[0].Pos
	sim := New(m, cfg)
	if !sim.Done() || sim.Remaining() != 0 {
		t.Fatalf("Done() = %v, Remaining() = %d, want done with nothing left", sim.Done(), sim.Remaining())
	}
	if sim.Step() {
		t.Error("Step() should report false with a zero budget")
	}
	if sim.Steps() != 0 || m.Nodes[0].Pos != start {
		t.Errorf("steps = %d, pos = %v, want 0 and %v", sim.Steps(), m.Nodes[0].Pos, start)
	}
}

func TestZeroAttraction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Repulsion = 0
	cfg.Attraction = 0
	m := pair(geom.V(0, 0), geom.V(100, 0), true)
	sim := New(m, cfg)
	sim.Step()
	if m.Nodes[0].Pos != geom.V(0, 0) || m.Nodes[1].Pos != geom.V(100, 0) {
		t.Errorf("positions = %v, %v, want unchanged with both forces off", m.Nodes[0].Pos, m.Nodes[1].Pos)
	}
}

func TestRepulsion(t *testing.T) {
	m := pair(geom.V(0, 0), geom.V(10, 0), false)
	sim := New(m, DefaultConfig())
	sim.Step()

	// 3000/10² = 30 per node, moved once, then damped by 0.8.
	a, b := m.Nodes[0], m.Nodes[1]
	if !near(a.Pos.X, -30) || !near(b.Pos.X, 40) {
		t.Errorf("positions = %v, %v, want x=-30, x=40", a.Pos, b.Pos)
	}
	if !near(a.Vel.X, -24) || !near(b.Vel.X, 24) {
		t.Errorf("velocities = %v, %v, want ±24", a.Vel, b.Vel)
	}
	if a.Pos.Y != 0 || b.Pos.Y != 0 {
		t.Errorf("y drifted: %v, %v", a.Pos, b.Pos)
	}
}

func TestRepulsionDistanceFloor(t *testing.T) {
	m := pair(geom.V(0, 0), geom.V(0.5, 0), false)
	New(m, DefaultConfig()).Step()

	// d is floored at 1, so the magnitude is 3000 rather than 12000.
	if got := m.Nodes[1].Pos.X; !near(got, 0.5+3000) {
		t.Errorf("b.Pos.X = %v, want %v", got, 0.5+3000)
	}
}

func TestCoincidentNodesExertNoForce(t *testing.T) {
	m := pair(geom.V(7, 7), geom.V(7, 7), false)
	New(m, DefaultConfig()).Step()
	for _, n := range m.Nodes {
		if n.Pos != geom.V(7, 7) || !n.Vel.IsZero() {
			t.Errorf("%s moved to %v (vel %v)", n.ID, n.Pos, n.Vel)
		}
	}
}

func TestAttraction(t *testing.T) {
	m := pair(geom.V(0, 0), geom.V(1000, 0), true)
	New(m, DefaultConfig()).Step()

	// Spring: 1000·0.01 = 10 inward. Repulsion: 3000/1000² = 0.003 outward.
	want := 10 - 0.003
	if got := m.Nodes[0].Pos.X; !near(got, want) {
		t.Errorf("a.Pos.X = %v, want %v", got, want)
	}
	if got := m.Nodes[1].Pos.X; !near(got, 1000-want) {
		t.Errorf("b.Pos.X = %v, want %v", got, 1000-want)
	}
}

func TestStepBudget(t *testing.T) {
	m := smallGraph()
	sim := New(m, DefaultConfig())

	steps := 0
	for sim.Step() {
		steps++
	}
	if steps != DefaultMaxSteps {
		t.Fatalf("steps = %d, want %d", steps, DefaultMaxSteps)
	}
	if !sim.Done() || sim.Remaining() != 0 || sim.Steps() != DefaultMaxSteps {
		t.Errorf("Done=%v Remaining=%d Steps=%d after budget", sim.Done(), sim.Remaining(), sim.Steps())
	}

	before := append([]graph.Node(nil), m.Nodes...)
	if sim.Step() {
		t.Error("Step() = true after budget exhausted")
	}
	for i := range m.Nodes {
		if m.Nodes[i].Pos != before[i].Pos {
			t.Errorf("%s moved after budget exhausted", m.Nodes[i].ID)
		}
	}

	sim.Reset()
	if sim.Done() || sim.Remaining() != DefaultMaxSteps {
		t.Errorf("after Reset: Done=%v Remaining=%d", sim.Done(), sim.Remaining())
	}
}

func TestEnergyDecays(t *testing.T) {
	m := smallGraph()
	sim := New(m, DefaultConfig())

	energy := make([]float64, 0, DefaultMaxSteps)
	for sim.Step() {
		energy = append(energy, KineticEnergy(m))
	}

	mean := func(xs []float64) float64 {
		var s float64
		for _, x := range xs {
			s += x
		}
		return s / float64(len(xs))
	}
	early := mean(energy[:50])
	late := mean(energy[len(energy)-50:])
	if !(late < early) {
		t.Errorf("mean energy of last 50 steps = %g, want < first 50 steps %g", late, early)
	}
	if late > early*0.01 {
		t.Errorf("late energy %g not settled relative to early %g", late, early)
	}
	for i, n := range m.Nodes {
		if math.IsNaN(n.Pos.X) || math.IsNaN(n.Pos.Y) {
			t.Fatalf("node %d position is NaN", i)
		}
	}
}

// centroid returns the mean node position.
func centroid(m *graph.Model) geom.Vec {
	var c geom.Vec
	for i := range m.Nodes {
		c = c.Add(m.Nodes[i].Pos)
	}
	return c.Div(float64(m.Len()))
}

func TestMomentumConserved(t *testing.T) {
	m := smallGraph()
	start := centroid(m)
	if _, err := New(m, DefaultConfig()).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	end := centroid(m)
	if end.Dist(start) > 1e-6 {
		t.Errorf("centroid moved from %v to %v", start, end)
	}
}

func TestRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSteps = 25
	sim := New(smallGraph(), cfg)
	sim.Step()
	n, err := sim.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 24 {
		t.Errorf("Run() = %d steps, want 24", n)
	}
}

func TestRunFuncReportsEachStep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSteps = 4
	var got [][2]int
	n, err := New(smallGraph(), cfg).RunFunc(context.Background(), func(step, total int) {
		got = append(got, [2]int{step, total})
	})
	if err != nil || n != 4 {
		t.Fatalf("RunFunc() = %d, %v, want 4, nil", n, err)
	}
	want := [][2]int{{1, 4}, {2, 4}, {3, 4}, {4, 4}}
	if len(got) != len(want) {
		t.Fatalf("callbacks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("callback %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sim := New(smallGraph(), DefaultConfig())
	n, err := sim.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if n != 0 || sim.Steps() != 0 {
		t.Errorf("Run() applied %d steps on canceled context", n)
	}
}

func TestEmptyModel(t *testing.T) {
	for _, m := range []*graph.Model{nil, graph.Build(nil)} {
		sim := New(m, DefaultConfig())
		if !sim.Done() {
			t.Error("Done() = false for empty model")
		}
		if sim.Step() {
			t.Error("Step() = true for empty model")
		}
		if KineticEnergy(m) != 0 {
			t.Error("KineticEnergy(empty) != 0")
		}
	}
}
