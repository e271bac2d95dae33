package render

import (
	"image/color"
	"math"

	"github.com/matzehuels/ontograph/pkg/geom"
	"github.com/matzehuels/ontograph/pkg/graph"
	"github.com/matzehuels/ontograph/pkg/view"
)

// Fixed colors.
var (
	Background   = color.NRGBA{7, 7, 7, 255}
	LabelColor   = color.NRGBA{250, 250, 250, 255}
	LabelShadow  = color.NRGBA{0, 0, 0, 204} // 0.8
	CaptionColor = color.NRGBA{160, 160, 160, 255}
	SelectColor  = color.NRGBA{255, 215, 0, 255}
	OutlineColor = color.NRGBA{255, 255, 255, 77} // 0.3
)

// Geometry in world units.
const (
	ArrowLength          = 12.0
	ArrowSpread          = math.Pi / 6
	ArrowGap             = 5.0
	ArrowWidth           = 2.0
	SelectionGap         = 6.0
	SelectionWidth       = 3.0
	OutlineWidth         = 2.0
	SelectedOutlineWidth = 2.5
	ClassLabelSize       = 13.0
	LabelSize            = 12.0
	CaptionSize          = 9.0
	CaptionOffset        = 12.0
)

// TextStyle describes a text run. Text is centered vertically on its anchor
// and horizontally unless Left is set.
type TextStyle struct {
	Size   float64
	Bold   bool
	Left   bool
	Color  color.Color
	Shadow color.Color // nil for no shadow
}

// Surface is a drawing target. Coordinates passed to the primitives go
// through the current transform; with the identity transform they are CSS
// pixels. Hosts apply the device scale themselves.
type Surface interface {
	// Size returns the surface size in CSS pixels.
	Size() (width, height float64)
	// Clear fills the whole surface, ignoring the transform.
	Clear(c color.Color)
	// SetTransform maps p to origin + zoom·p for subsequent primitives.
	SetTransform(origin geom.Vec, zoom float64)
	// ResetTransform restores the identity transform.
	ResetTransform()
	Line(a, b geom.Vec, width float64, c color.Color, dash []float64)
	FillCircle(center geom.Vec, r float64, c color.Color)
	StrokeCircle(center geom.Vec, r, width float64, c color.Color)
	FillRect(topLeft, bottomRight geom.Vec, c color.Color)
	Text(s string, at geom.Vec, style TextStyle)
}

// Scene is everything a frame depends on.
type Scene struct {
	Model    *graph.Model
	Viewport *view.Viewport
	Selected string // empty for no selection
}

// Renderer draws a full frame. There is no incremental redraw.
type Renderer interface {
	Render(scene Scene)
}

// Draw paints scene onto s. See the package documentation for the order and
// the handling of degenerate input.
func Draw(s Surface, scene Scene) {
	if s == nil || scene.Viewport == nil {
		return
	}
	s.ResetTransform()
	s.Clear(Background)

	m := scene.Model
	if m.Len() == 0 {
		return
	}

	vp := scene.Viewport
	s.SetTransform(vp.Center().Add(vp.Pan()), vp.Zoom())
	defer s.ResetTransform()

	for _, e := range m.Edges {
		from, to, ok := m.Resolve(e)
		if !ok {
			continue
		}
		drawEdge(s, e.Kind, &m.Nodes[from], &m.Nodes[to])
	}
	for i := range m.Nodes {
		n := &m.Nodes[i]
		drawNode(s, n, n.ID == scene.Selected)
	}
}

func drawEdge(s Surface, kind graph.EdgeKind, from, to *graph.Node) {
	c := kind.Color()
	s.Line(from.Pos, to.Pos, kind.Width(), c, kind.Dash())

	tip, left, right := Arrowhead(from.Pos, to.Pos, to.Radius)
	s.Line(tip, left, ArrowWidth, c, nil)
	s.Line(tip, right, ArrowWidth, c, nil)
}

// Arrowhead returns the tip and the two wing ends of the arrow drawn at the
// target end of a from→to line. The tip sits targetRadius+ArrowGap short of
// the target center.
func Arrowhead(from, to geom.Vec, targetRadius float64) (tip, left, right geom.Vec) {
	angle := to.Sub(from).Angle()
	tip = to.Sub(geom.Polar(targetRadius+ArrowGap, angle))
	left = tip.Sub(geom.Polar(ArrowLength, angle-ArrowSpread))
	right = tip.Sub(geom.Polar(ArrowLength, angle+ArrowSpread))
	return tip, left, right
}

func drawNode(s Surface, n *graph.Node, selected bool) {
	if selected {
		s.StrokeCircle(n.Pos, n.Radius+SelectionGap, SelectionWidth, SelectColor)
	}
	s.FillCircle(n.Pos, n.Radius, n.Color)
	if selected {
		s.StrokeCircle(n.Pos, n.Radius, SelectedOutlineWidth, SelectColor)
	} else {
		s.StrokeCircle(n.Pos, n.Radius, OutlineWidth, OutlineColor)
	}

	s.Text(n.Label, n.Pos, labelStyle(n.Kind))
	s.Text(Caption(n.Kind), n.Pos.Add(geom.V(0, n.Radius+CaptionOffset)), TextStyle{
		Size:  CaptionSize,
		Color: CaptionColor,
	})
}

func labelStyle(k graph.NodeKind) TextStyle {
	st := TextStyle{Size: LabelSize, Color: LabelColor, Shadow: LabelShadow}
	switch k {
	case graph.KindClass:
		st.Size, st.Bold = ClassLabelSize, true
	case graph.KindProperty, graph.KindIndividual:
	}
	return st
}

// Caption returns the kind caption drawn under a node.
func Caption(k graph.NodeKind) string {
	switch k {
	case graph.KindClass:
		return "class"
	case graph.KindProperty:
		return "property"
	case graph.KindIndividual:
		return "individual"
	default:
		return ""
	}
}
