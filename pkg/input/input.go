// Package input interprets pointer and wheel events for the graph view:
// dragging pans, the wheel zooms, and a press released in place selects the
// node under the pointer.
//
// The controller does not draw. Callers redraw after any method that reports
// a change.
package input

import (
	"github.com/matzehuels/ontograph/pkg/geom"
	"github.com/matzehuels/ontograph/pkg/graph"
	"github.com/matzehuels/ontograph/pkg/ontology"
	"github.com/matzehuels/ontograph/pkg/view"
)

// DefaultClickSlop is how far, in CSS pixels, the pointer may travel between
// press and release for the release to count as a click.
const DefaultClickSlop = 3.0

// Controller maps pointer events onto a viewport and a selection.
type Controller struct {
	vp       *view.Viewport
	model    *graph.Model
	selector ontology.Selector
	slop     float64

	selected string

	pressed bool
	pressAt geom.Vec
	travel  float64 // farthest distance from pressAt during the gesture
}

// New returns a controller driving vp. selector may be nil.
func New(vp *view.Viewport, selector ontology.Selector) *Controller {
	return &Controller{vp: vp, selector: selector, slop: DefaultClickSlop}
}

// SetModel replaces the model used for hit-testing. The selection is kept.
func (c *Controller) SetModel(m *graph.Model) { c.model = m }

// SetClickSlop sets the click tolerance. Negative values are treated as zero.
func (c *Controller) SetClickSlop(px float64) { c.slop = max(px, 0) }

// ClickSlop returns the click tolerance in CSS pixels.
func (c *Controller) ClickSlop() float64 { return c.slop }

// Viewport returns the driven viewport.
func (c *Controller) Viewport() *view.Viewport { return c.vp }

// Selected returns the selected node id, or "" when nothing is selected.
func (c *Controller) Selected() string { return c.selected }

// Pressed reports whether a pointer gesture is in progress.
func (c *Controller) Pressed() bool { return c.pressed }

// PointerDown starts a pan gesture at p (screen space).
func (c *Controller) PointerDown(p geom.Vec) {
	c.pressed = true
	c.pressAt = p
	c.travel = 0
	c.vp.BeginDrag(p)
}

// PointerMove pans while a gesture is active. It reports whether the pan
// changed.
func (c *Controller) PointerMove(p geom.Vec) bool {
	if !c.pressed {
		return false
	}
	c.travel = max(c.travel, p.Dist(c.pressAt))
	return c.vp.DragTo(p)
}

// PointerUp ends the gesture. A release that stayed within the click slop is
// handled as [Controller.Click]. It reports whether the pan or selection
// changed.
func (c *Controller) PointerUp(p geom.Vec) bool {
	if !c.pressed {
		return false
	}
	moved := c.PointerMove(p)
	c.pressed = false
	c.vp.EndDrag()
	if c.travel > c.slop {
		return moved
	}
	before := c.selected
	c.Click(p)
	return moved || c.selected != before
}

// PointerLeave ends the gesture without a click.
func (c *Controller) PointerLeave() {
	c.pressed = false
	c.vp.EndDrag()
}

// Click selects the node under p (screen space). A class hit is reported to
// the selector. A miss clears the selection without notification.
func (c *Controller) Click(p geom.Vec) (id string, ok bool) {
	i, ok := HitTest(c.model, c.vp.ToWorld(p))
	if !ok {
		c.selected = ""
		return "", false
	}
	n := &c.model.Nodes[i]
	c.selected = n.ID
	if n.Kind == graph.KindClass && c.selector != nil {
		c.selector.SelectClass(n.ID)
	}
	return n.ID, true
}

// Select sets the selection directly, without notifying the selector.
func (c *Controller) Select(id string) { c.selected = id }

// Wheel zooms by one wheel notch. It always reports the event as handled so
// hosts suppress their default scrolling.
func (c *Controller) Wheel(deltaY float64) (handled bool) {
	c.vp.Wheel(deltaY)
	return true
}

// ZoomIn zooms in by one button step.
func (c *Controller) ZoomIn() { c.vp.ZoomIn() }

// ZoomOut zooms out by one button step.
func (c *Controller) ZoomOut() { c.vp.ZoomOut() }

// ResetView restores zoom 1 and no pan.
func (c *Controller) ResetView() { c.vp.Reset() }

// HitTest returns the index of the first node, in model order, whose center
// is within its radius of world point p. Boundary points hit.
func HitTest(m *graph.Model, p geom.Vec) (int, bool) {
	if m == nil {
		return 0, false
	}
	for i := range m.Nodes {
		n := &m.Nodes[i]
		if p.Dist(n.Pos) <= n.Radius {
			return i, true
		}
	}
	return 0, false
}
