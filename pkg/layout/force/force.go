package force

import (
	"context"

	"github.com/matzehuels/ontograph/pkg/graph"
)

// Default simulation constants.
const (
	DefaultRepulsion   = 3000.0
	DefaultAttraction  = 0.01
	DefaultDamping     = 0.8
	DefaultMaxSteps    = 300
	DefaultMinDistance = 1.0
)

// Config holds the simulation constants. The zero Config means the defaults;
// any other value is used as given, so a zero step budget or spring constant
// is honored.
type Config struct {
	Repulsion   float64 `toml:"repulsion" json:"repulsion"`
	Attraction  float64 `toml:"attraction" json:"attraction"`
	Damping     float64 `toml:"damping" json:"damping"`
	MaxSteps    int     `toml:"steps" json:"steps"`
	MinDistance float64 `toml:"min_distance" json:"min_distance"`
}

// DefaultConfig returns the default constants.
func DefaultConfig() Config {
	return Config{
		Repulsion:   DefaultRepulsion,
		Attraction:  DefaultAttraction,
		Damping:     DefaultDamping,
		MaxSteps:    DefaultMaxSteps,
		MinDistance: DefaultMinDistance,
	}
}

// WithDefaults returns the default constants when c is the zero Config and
// c unchanged otherwise.
func (c Config) WithDefaults() Config {
	if c == (Config{}) {
		return DefaultConfig()
	}
	return c
}

// Simulator runs one bounded relaxation over a model. It mutates only node
// positions and velocities, never identity or topology.
type Simulator struct {
	cfg   Config
	model *graph.Model
	links [][2]int // resolved edge endpoints
	step  int
}

// New creates a simulator for m. Edge endpoints are resolved once here;
// edges with a missing endpoint exert no force.
func New(m *graph.Model, cfg Config) *Simulator {
	s := &Simulator{cfg: cfg.WithDefaults(), model: m}
	if m == nil {
		return s
	}
	s.links = make([][2]int, 0, len(m.Edges))
	for _, e := range m.Edges {
		if from, to, ok := m.Resolve(e); ok {
			s.links = append(s.links, [2]int{from, to})
		}
	}
	return s
}

// Config returns the effective constants.
func (s *Simulator) Config() Config { return s.cfg }

// Steps returns the number of steps applied since the last reset.
func (s *Simulator) Steps() int { return s.step }

// Remaining returns the number of steps left in the budget.
func (s *Simulator) Remaining() int { return max(s.cfg.MaxSteps-s.step, 0) }

// Done reports whether the step budget is exhausted or there is nothing to
// simulate.
func (s *Simulator) Done() bool {
	return s.model.Len() == 0 || s.step >= s.cfg.MaxSteps
}

// Reset restarts the budget from step 0 without touching positions.
func (s *Simulator) Reset() { s.step = 0 }

// Step applies one simulation step. It reports false, without moving
// anything, once the budget is exhausted.
func (s *Simulator) Step() bool {
	if s.Done() {
		return false
	}
	nodes := s.model.Nodes
	s.repel(nodes)
	s.attract(nodes)
	for i := range nodes {
		n := &nodes[i]
		n.Pos = n.Pos.Add(n.Vel)
		n.Vel = n.Vel.Scale(s.cfg.Damping)
	}
	s.step++
	return true
}

func (s *Simulator) repel(nodes []graph.Node) {
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			delta := nodes[j].Pos.Sub(nodes[i].Pos)
			d := delta.Len()
			if d == 0 {
				continue
			}
			floored := max(d, s.cfg.MinDistance)
			f := delta.Scale(s.cfg.Repulsion / (floored * floored) / d)
			nodes[i].Vel = nodes[i].Vel.Sub(f)
			nodes[j].Vel = nodes[j].Vel.Add(f)
		}
	}
}

func (s *Simulator) attract(nodes []graph.Node) {
	for _, l := range s.links {
		from, to := &nodes[l[0]], &nodes[l[1]]
		// d·k along the unit vector is delta·k.
		f := to.Pos.Sub(from.Pos).Scale(s.cfg.Attraction)
		from.Vel = from.Vel.Add(f)
		to.Vel = to.Vel.Sub(f)
	}
}

// Run applies the remaining steps, checking ctx between steps. It returns
// the number of steps applied by this call.
func (s *Simulator) Run(ctx context.Context) (int, error) {
	return s.RunFunc(ctx, nil)
}

// RunFunc is Run with a callback after every step. each receives the steps
// applied so far and the budget.
func (s *Simulator) RunFunc(ctx context.Context, each func(step, total int)) (int, error) {
	n := 0
	for !s.Done() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		s.Step()
		n++
		if each != nil {
			each(s.step, s.cfg.MaxSteps)
		}
	}
	return n, nil
}

// KineticEnergy returns the sum of squared node velocities.
func KineticEnergy(m *graph.Model) float64 {
	if m == nil {
		return 0
	}
	var e float64
	for i := range m.Nodes {
		e += m.Nodes[i].Vel.Len2()
	}
	return e
}
