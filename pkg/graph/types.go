package graph

import (
	"image/color"

	"github.com/matzehuels/ontograph/pkg/geom"
	"github.com/matzehuels/ontograph/pkg/ontology"
)

// NodeKind is the closed set of vertex kinds.
type NodeKind int

// Node kinds.
const (
	KindClass NodeKind = iota
	KindProperty
	KindIndividual
)

// String returns the kind name.
func (k NodeKind) String() string {
	switch k {
	case KindClass:
		return "Class"
	case KindProperty:
		return "Property"
	case KindIndividual:
		return "Individual"
	default:
		return "Unknown"
	}
}

// Radius returns the fixed visual radius for the kind.
func (k NodeKind) Radius() float64 {
	switch k {
	case KindClass:
		return 35
	case KindProperty:
		return 28
	case KindIndividual:
		return 25
	default:
		return 25
	}
}

// ParseNodeKind is the inverse of [NodeKind.String].
func ParseNodeKind(s string) (NodeKind, bool) {
	switch s {
	case "Class":
		return KindClass, true
	case "Property":
		return KindProperty, true
	case "Individual":
		return KindIndividual, true
	default:
		return 0, false
	}
}

// EdgeKind is the closed set of relation kinds.
type EdgeKind int

// Edge kinds.
const (
	EdgeSubclass EdgeKind = iota
	EdgePropertyRelation
	EdgeInstance
)

// Label returns the caption of the relation.
func (k EdgeKind) Label() string {
	switch k {
	case EdgeSubclass:
		return "subClassOf"
	case EdgePropertyRelation:
		return "domain"
	case EdgeInstance:
		return "instanceOf"
	default:
		return ""
	}
}

// String returns the edge kind name.
func (k EdgeKind) String() string {
	switch k {
	case EdgeSubclass:
		return "subclass"
	case EdgePropertyRelation:
		return "property"
	case EdgeInstance:
		return "instance"
	default:
		return "unknown"
	}
}

// ParseEdgeKind is the inverse of [EdgeKind.String].
func ParseEdgeKind(s string) (EdgeKind, bool) {
	switch s {
	case "subclass":
		return EdgeSubclass, true
	case "property":
		return EdgePropertyRelation, true
	case "instance":
		return EdgeInstance, true
	default:
		return 0, false
	}
}

// Width returns the stroke width of the relation.
func (k EdgeKind) Width() float64 {
	switch k {
	case EdgeSubclass:
		return 2.5
	case EdgePropertyRelation, EdgeInstance:
		return 1.5
	default:
		return 1.5
	}
}

// Dash returns the dash pattern of the relation, nil for solid lines.
func (k EdgeKind) Dash() []float64 {
	switch k {
	case EdgePropertyRelation:
		return []float64{5, 5}
	case EdgeSubclass, EdgeInstance:
		return nil
	default:
		return nil
	}
}

// Color returns the translucent stroke color of the relation.
func (k EdgeKind) Color() color.NRGBA {
	switch k {
	case EdgeSubclass:
		return color.NRGBA{147, 112, 219, 128} // 0.5
	case EdgePropertyRelation:
		return color.NRGBA{99, 179, 237, 77} // 0.3
	case EdgeInstance:
		return color.NRGBA{244, 143, 177, 102} // 0.4
	default:
		return color.NRGBA{255, 255, 255, 77}
	}
}

// Palette colors.
var (
	ColorClass          = color.NRGBA{147, 112, 219, 255}
	ColorObjectProperty = color.NRGBA{99, 179, 237, 255}
	ColorDataProperty   = color.NRGBA{129, 199, 132, 255}
	ColorOtherProperty  = color.NRGBA{255, 152, 0, 255}
	ColorIndividual     = color.NRGBA{244, 143, 177, 255}
)

// NodeColor returns the fill color for a node kind. The property subtype is
// only consulted for [KindProperty].
func NodeColor(k NodeKind, pt ontology.PropertyType) color.NRGBA {
	switch k {
	case KindClass:
		return ColorClass
	case KindProperty:
		switch pt {
		case ontology.ObjectProperty:
			return ColorObjectProperty
		case ontology.DataProperty:
			return ColorDataProperty
		default:
			return ColorOtherProperty
		}
	case KindIndividual:
		return ColorIndividual
	default:
		return ColorOtherProperty
	}
}

// Node is one visual vertex.
type Node struct {
	ID           string
	Kind         NodeKind
	PropertyType ontology.PropertyType // set for KindProperty only
	Label        string
	Pos          geom.Vec // world space
	Vel          geom.Vec // simulator-private
	Radius       float64
	Color        color.NRGBA
}

// Edge is a directed relation between two node ids. Either endpoint may be
// missing from the model.
type Edge struct {
	From  string
	To    string
	Kind  EdgeKind
	Label string
}
