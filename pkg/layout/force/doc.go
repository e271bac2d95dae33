// Package force relaxes a seeded [graph.Model] with a discrete-time particle
// simulation.
//
// Each [Simulator.Step] applies, over the full node set:
//
//  1. Repulsion: every unordered pair pushes apart with magnitude
//     Repulsion/d², where d is the center distance floored at MinDistance.
//  2. Attraction: every edge whose endpoints both exist pulls them together
//     with magnitude d·Attraction. Edges never push.
//  3. Integration: velocity accumulates the net force, position advances by
//     the velocity, then velocity is scaled by Damping.
//
// The run is strictly bounded by MaxSteps (300 by default). There is no
// convergence test: a run always costs the same number of steps, and a
// simulator that has used its budget never moves a node again until
// [Simulator.Reset].
//
// Repulsion is O(n²) per step. The model is meant for graphs of at most a
// few hundred nodes.
//
// Interactive hosts call Step once per frame so input is serviced between
// steps. Batch callers use [Simulator.Run].
package force
