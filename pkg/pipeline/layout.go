package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/ontograph/pkg/graph"
	"github.com/matzehuels/ontograph/pkg/layout/force"
	"github.com/matzehuels/ontograph/pkg/ontology"
)

// Settle builds the model of s and runs the force simulation to the end of
// its step budget. The returned layout records the steps applied.
func Settle(ctx context.Context, s *ontology.Snapshot, opts Options) (graph.Layout, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return graph.Layout{}, err
	}

	m := graph.Build(s)
	sim := force.New(m, opts.Force)
	steps, err := sim.RunFunc(ctx, opts.Progress)
	if err != nil {
		return graph.Layout{}, fmt.Errorf("simulate: %w", err)
	}

	opts.Logger.Debug("settled layout",
		"nodes", m.Len(),
		"edges", len(m.Edges),
		"steps", steps,
		"energy", force.KineticEnergy(m))

	l := m.Layout(opts.Width, opts.Height)
	if s != nil {
		l.Name = s.Name
	}
	l.Steps = sim.Steps()
	return l, nil
}
