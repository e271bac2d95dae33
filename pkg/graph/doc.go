// Package graph builds the node/edge model drawn by the ontology graph view.
//
// [Build] turns an [ontology.Snapshot] into a [Model]: one [Node] per class,
// property and individual, and one [Edge] per subclass, domain and instance
// relation. Nodes are seeded on concentric circles so the force simulator
// starts from a non-degenerate configuration:
//
//	classes      radius 250, evenly spaced by index
//	properties   radius 150, phase-shifted by π
//	individuals  radius 100, centered at (+300, 0)
//
// The placement is deliberately naive; pkg/layout/force relaxes it.
//
// # Kinds
//
// [NodeKind] and [EdgeKind] are closed enums. Every consumer (colors, line
// styles, captions) switches over them exhaustively, so adding a kind is a
// compile-time decision point rather than a silent fallthrough.
//
// # Dangling Edges
//
// Relations that point at ids missing from the snapshot are kept as edges.
// [Model.Resolve] reports whether both endpoints exist; renderers skip the
// ones that do not. The model never rewrites input data to "fix" it.
//
// # Layout Serialization
//
// A settled model can be exported as a [Layout] (positions, kinds, edges)
// and applied back onto a freshly built model, which is how the batch
// pipeline caches simulation results:
//
//	l := m.Layout(1200, 800)
//	data, _ := graph.MarshalLayout(l)
//	...
//	restored, _ := graph.UnmarshalLayout(data)
//	m.Apply(restored)
//
// # Concurrency
//
// A Model is owned by one goroutine at a time. The simulator mutates node
// positions in place; readers must not run concurrently with it.
package graph
