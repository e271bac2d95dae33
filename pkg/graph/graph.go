package graph

import (
	"math"

	"github.com/matzehuels/ontograph/pkg/geom"
	"github.com/matzehuels/ontograph/pkg/ontology"
)

// Seed circle geometry.
const (
	ClassRadius      = 250.0
	PropertyRadius   = 150.0
	IndividualRadius = 100.0
	IndividualOffset = 300.0
)

// Model is the node/edge snapshot drawn by the view. Nodes and edges keep
// the snapshot's collection order.
type Model struct {
	Nodes []Node
	Edges []Edge
	index map[string]int
}

// Build converts a snapshot into a fresh model with seeded positions.
//
// Classes come first, then properties, then individuals. When an id repeats
// across or within collections the first occurrence wins and the duplicate
// is skipped along with its relations. A nil snapshot yields an empty model.
func Build(s *ontology.Snapshot) *Model {
	m := &Model{index: make(map[string]int)}
	if s == nil {
		return m
	}

	for i := range s.Classes {
		c := &s.Classes[i]
		pos := geom.Polar(ClassRadius, angle(i, len(s.Classes), 0))
		if !m.add(Node{ID: c.ID, Kind: KindClass, Label: c.DisplayLabel(), Pos: pos}) {
			continue
		}
		for _, sup := range c.SuperClasses {
			if sup == ontology.Thing {
				continue
			}
			m.Edges = append(m.Edges, Edge{From: c.ID, To: sup, Kind: EdgeSubclass, Label: EdgeSubclass.Label()})
		}
	}

	for i := range s.Properties {
		p := &s.Properties[i]
		pos := geom.Polar(PropertyRadius, angle(i, len(s.Properties), math.Pi))
		n := Node{ID: p.ID, Kind: KindProperty, PropertyType: p.Type, Label: p.DisplayLabel(), Pos: pos}
		if !m.add(n) {
			continue
		}
		for _, d := range p.Domain {
			m.Edges = append(m.Edges, Edge{From: p.ID, To: d, Kind: EdgePropertyRelation, Label: EdgePropertyRelation.Label()})
		}
	}

	for i := range s.Individuals {
		ind := &s.Individuals[i]
		pos := geom.Polar(IndividualRadius, angle(i, len(s.Individuals), 0)).Add(geom.V(IndividualOffset, 0))
		if !m.add(Node{ID: ind.ID, Kind: KindIndividual, Label: ind.DisplayLabel(), Pos: pos}) {
			continue
		}
		for _, t := range ind.Types {
			m.Edges = append(m.Edges, Edge{From: ind.ID, To: t, Kind: EdgeInstance, Label: EdgeInstance.Label()})
		}
	}
	return m
}

func angle(i, n int, phase float64) float64 {
	return float64(i)/float64(n)*2*math.Pi + phase
}

func (m *Model) add(n Node) bool {
	if _, dup := m.index[n.ID]; dup {
		return false
	}
	n.Radius = n.Kind.Radius()
	n.Color = NodeColor(n.Kind, n.PropertyType)
	m.index[n.ID] = len(m.Nodes)
	m.Nodes = append(m.Nodes, n)
	return true
}

// Len returns the number of nodes.
func (m *Model) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Nodes)
}

// Index returns the position of id in Nodes.
func (m *Model) Index(id string) (int, bool) {
	if m == nil {
		return 0, false
	}
	i, ok := m.index[id]
	return i, ok
}

// Node returns the node with the given id.
func (m *Model) Node(id string) (*Node, bool) {
	i, ok := m.Index(id)
	if !ok {
		return nil, false
	}
	return &m.Nodes[i], true
}

// Resolve returns the node indices of both endpoints of e. ok is false when
// either endpoint is not in the model.
func (m *Model) Resolve(e Edge) (from, to int, ok bool) {
	from, okFrom := m.Index(e.From)
	to, okTo := m.Index(e.To)
	return from, to, okFrom && okTo
}

// Counts returns the number of nodes per kind.
func (m *Model) Counts() map[NodeKind]int {
	out := make(map[NodeKind]int, 3)
	if m == nil {
		return out
	}
	for i := range m.Nodes {
		out[m.Nodes[i].Kind]++
	}
	return out
}
