package graph

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/matzehuels/ontograph/pkg/geom"
	"github.com/matzehuels/ontograph/pkg/ontology"
)

// =============================================================================
// Layout - Serialized Model
// =============================================================================

// Layout is the serialization format of a (usually settled) model. It is
// written by the json export, stored in caches and served by the API.
type Layout struct {
	Name   string       `json:"name,omitempty" bson:"name,omitempty"`
	Width  float64      `json:"width" bson:"width"`
	Height float64      `json:"height" bson:"height"`
	Steps  int          `json:"steps" bson:"steps"` // simulation steps applied
	Nodes  []LayoutNode `json:"nodes" bson:"nodes"`
	Edges  []LayoutEdge `json:"edges" bson:"edges"`
}

// LayoutNode is a positioned node.
type LayoutNode struct {
	ID           string                `json:"id" bson:"id"`
	Label        string                `json:"label" bson:"label"`
	Kind         string                `json:"kind" bson:"kind"`
	PropertyType ontology.PropertyType `json:"property_type,omitempty" bson:"property_type,omitempty"`
	Pos          geom.Vec              `json:"pos" bson:"pos"`
	Radius       float64               `json:"radius" bson:"radius"`
}

// LayoutEdge is a serialized relation.
type LayoutEdge struct {
	From  string `json:"from" bson:"from"`
	To    string `json:"to" bson:"to"`
	Kind  string `json:"kind" bson:"kind"`
	Label string `json:"label,omitempty" bson:"label,omitempty"`
}

// Counts returns the number of nodes per kind. Nodes with an unknown kind
// string are not counted.
func (l Layout) Counts() map[NodeKind]int {
	out := make(map[NodeKind]int, 3)
	for _, n := range l.Nodes {
		if k, ok := ParseNodeKind(n.Kind); ok {
			out[k]++
		}
	}
	return out
}

// Layout exports the current node positions for a surface of the given size.
func (m *Model) Layout(width, height float64) Layout {
	l := Layout{Width: width, Height: height}
	if m == nil {
		return l
	}
	l.Nodes = make([]LayoutNode, len(m.Nodes))
	for i := range m.Nodes {
		n := &m.Nodes[i]
		l.Nodes[i] = LayoutNode{
			ID:           n.ID,
			Label:        n.Label,
			Kind:         n.Kind.String(),
			PropertyType: n.PropertyType,
			Pos:          n.Pos,
			Radius:       n.Radius,
		}
	}
	l.Edges = make([]LayoutEdge, len(m.Edges))
	for i, e := range m.Edges {
		l.Edges[i] = LayoutEdge{From: e.From, To: e.To, Kind: e.Kind.String(), Label: e.Label}
	}
	return l
}

// Apply copies positions from l onto nodes with matching ids and clears their
// velocities. It returns the number of nodes updated.
func (m *Model) Apply(l Layout) int {
	if m == nil {
		return 0
	}
	applied := 0
	for _, ln := range l.Nodes {
		if n, ok := m.Node(ln.ID); ok {
			n.Pos = ln.Pos
			n.Vel = geom.Vec{}
			applied++
		}
	}
	return applied
}

// FromLayout rebuilds a model from a serialized layout.
func FromLayout(l Layout) (*Model, error) {
	m := &Model{index: make(map[string]int, len(l.Nodes))}
	for _, ln := range l.Nodes {
		kind, ok := ParseNodeKind(ln.Kind)
		if !ok {
			return nil, fmt.Errorf("node %s: unknown kind %q", ln.ID, ln.Kind)
		}
		if !m.add(Node{ID: ln.ID, Kind: kind, PropertyType: ln.PropertyType, Label: ln.Label, Pos: ln.Pos}) {
			return nil, fmt.Errorf("node %s: duplicate id", ln.ID)
		}
	}
	for _, le := range l.Edges {
		kind, ok := ParseEdgeKind(le.Kind)
		if !ok {
			return nil, fmt.Errorf("edge %s→%s: unknown kind %q", le.From, le.To, le.Kind)
		}
		m.Edges = append(m.Edges, Edge{From: le.From, To: le.To, Kind: kind, Label: le.Label})
	}
	return m, nil
}

// =============================================================================
// Layout Serialization API
// =============================================================================

// MarshalLayout serializes a Layout to pretty-printed JSON bytes.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout deserializes JSON bytes into a Layout.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	for i, n := range l.Nodes {
		if n.ID == "" {
			return Layout{}, fmt.Errorf("layout node %d has no id", i)
		}
	}
	return l, nil
}

// WriteLayoutFile writes a Layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadLayoutFile reads a Layout from a JSON file.
func ReadLayoutFile(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalLayout(data)
}
