// Package render draws a graph model through a single entry point.
//
// # Overview
//
// Every host (the raster canvas, the terminal screen, the recording surface
// used in tests) implements [Surface]: a handful of drawing primitives in a
// canvas-like coordinate system. [Draw] owns the drawing policy (order,
// colors, widths, arrowheads, selection ring, labels) so hosts never
// re-derive it:
//
//	background → edges → nodes
//
// Each host wraps Draw in a [Renderer]:
//
//	c := canvas.New(vp.BackingSize())
//	c.Render(render.Scene{Model: m, Viewport: vp, Selected: "Pizza"})
//	png, err := c.PNG()
//
// # Degenerate Input
//
// A nil surface or viewport draws nothing. A nil or empty model draws the
// background only. Edges whose endpoints are not both in the model are
// skipped without a warning.
//
// # Chrome
//
// The legend and zoom readout belong to the surrounding chrome. [Legend],
// [ZoomReadout] and [SelectionReadout] give that chrome the data it needs;
// [DrawLegend] paints a legend panel for hosts that have no chrome of their
// own, such as batch PNG exports.
//
// Subpackages:
//   - [canvas]: raster host backed by fogleman/gg
//   - [term]: character-cell host for the terminal viewer
//   - [nodelink]: Graphviz DOT/SVG export with pinned positions
//
// [canvas]: github.com/matzehuels/ontograph/pkg/render/canvas
// [term]: github.com/matzehuels/ontograph/pkg/render/term
// [nodelink]: github.com/matzehuels/ontograph/pkg/render/nodelink
package render
