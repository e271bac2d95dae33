package render

import (
	"fmt"
	"image/color"
	"math"

	"github.com/matzehuels/ontograph/pkg/geom"
	"github.com/matzehuels/ontograph/pkg/graph"
	"github.com/matzehuels/ontograph/pkg/ontology"
)

// LegendEntry is one row of the legend.
type LegendEntry struct {
	Label string
	Color color.NRGBA
	Edge  bool      // drawn as a line sample instead of a dot
	Dash  []float64 // for edge samples
}

// Legend lists the node and edge styles in display order.
func Legend() []LegendEntry {
	return []LegendEntry{
		{Label: "Class", Color: graph.NodeColor(graph.KindClass, "")},
		{Label: "Object Property", Color: graph.NodeColor(graph.KindProperty, ontology.ObjectProperty)},
		{Label: "Data Property", Color: graph.NodeColor(graph.KindProperty, ontology.DataProperty)},
		{Label: "Annotation Property", Color: graph.NodeColor(graph.KindProperty, ontology.AnnotationProperty)},
		{Label: "Individual", Color: graph.NodeColor(graph.KindIndividual, "")},
		{Label: "Subclass", Color: graph.EdgeSubclass.Color(), Edge: true},
		{Label: "Property relation", Color: graph.EdgePropertyRelation.Color(), Edge: true, Dash: graph.EdgePropertyRelation.Dash()},
		{Label: "Instance", Color: graph.EdgeInstance.Color(), Edge: true},
	}
}

// ZoomReadout formats a zoom factor as "Zoom: 120%".
func ZoomReadout(zoom float64) string {
	return fmt.Sprintf("Zoom: %d%%", int(math.Round(zoom*100)))
}

// SelectionReadout formats the selection as "Selected: id", or returns ""
// when nothing is selected.
func SelectionReadout(id string) string {
	if id == "" {
		return ""
	}
	return "Selected: " + id
}

// Legend panel geometry in CSS pixels.
const (
	legendMargin  = 16.0
	legendPadding = 12.0
	legendRow     = 18.0
	legendWidth   = 170.0
	legendText    = 12.0
)

var (
	legendPanel  = color.NRGBA{24, 24, 27, 230}
	legendMuted  = color.NRGBA{160, 160, 160, 255}
	legendHeader = color.NRGBA{250, 250, 250, 255}
)

// DrawLegend paints a legend panel with the zoom and selection readouts in
// the bottom-left corner of s, in screen space.
func DrawLegend(s Surface, zoom float64, selected string) {
	if s == nil {
		return
	}
	entries := Legend()
	lines := []string{ZoomReadout(zoom)}
	if sel := SelectionReadout(selected); sel != "" {
		lines = append(lines, sel)
	}

	_, h := s.Size()
	rows := 1 + len(entries) + len(lines)
	height := float64(rows)*legendRow + 2*legendPadding
	top := geom.V(legendMargin, h-legendMargin-height)

	s.ResetTransform()
	s.FillRect(top, top.Add(geom.V(legendWidth, height)), legendPanel)

	left := top.X + legendPadding
	y := top.Y + legendPadding + legendRow/2
	text := func(str string, indent float64, c color.Color, bold bool) {
		s.Text(str, geom.V(left+indent, y), TextStyle{Size: legendText, Bold: bold, Color: c, Left: true})
	}

	text("Legend", 0, legendHeader, true)
	y += legendRow
	for _, e := range entries {
		if e.Edge {
			s.Line(geom.V(left, y), geom.V(left+16, y), 2, e.Color, e.Dash)
		} else {
			s.FillCircle(geom.V(left+8, y), 6, e.Color)
		}
		text(e.Label, 24, legendHeader, false)
		y += legendRow
	}
	for _, l := range lines {
		text(l, 0, legendMuted, false)
		y += legendRow
	}
}
