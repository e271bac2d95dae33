package render

import (
	"image/color"

	"github.com/matzehuels/ontograph/pkg/geom"
)

// OpKind identifies a recorded primitive.
type OpKind int

// Recorded primitives.
const (
	OpClear OpKind = iota
	OpLine
	OpFillCircle
	OpStrokeCircle
	OpFillRect
	OpText
)

// Op is one recorded primitive in screen space: points, radii and widths are
// already mapped through the transform that was active when it was drawn.
type Op struct {
	Kind   OpKind
	Points []geom.Vec
	Radius float64
	Width  float64
	Color  color.Color
	Dash   []float64
	Text   string
	Style  TextStyle
}

// Recorder is a headless [Surface] that records every primitive. It backs
// golden tests and lets hosts without pixels (the JSON state endpoint)
// inspect a frame.
type Recorder struct {
	Ops []Op

	width, height float64
	origin        geom.Vec
	zoom          float64
}

// NewRecorder returns a recorder for a surface of the given CSS size.
func NewRecorder(width, height float64) *Recorder {
	return &Recorder{width: width, height: height, zoom: 1}
}

// Render implements [Renderer]. Previously recorded ops are discarded.
func (r *Recorder) Render(scene Scene) {
	r.Ops = r.Ops[:0]
	Draw(r, scene)
}

// Count returns the number of recorded ops of kind k.
func (r *Recorder) Count(k OpKind) int {
	n := 0
	for _, op := range r.Ops {
		if op.Kind == k {
			n++
		}
	}
	return n
}

// Texts returns the recorded text runs in draw order.
func (r *Recorder) Texts() []string {
	var out []string
	for _, op := range r.Ops {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}

func (r *Recorder) Size() (float64, float64) { return r.width, r.height }

func (r *Recorder) Clear(c color.Color) {
	r.Ops = append(r.Ops, Op{Kind: OpClear, Color: c})
}

func (r *Recorder) SetTransform(origin geom.Vec, zoom float64) {
	r.origin, r.zoom = origin, zoom
}

func (r *Recorder) ResetTransform() {
	r.origin, r.zoom = geom.Vec{}, 1
}

func (r *Recorder) Line(a, b geom.Vec, width float64, c color.Color, dash []float64) {
	r.Ops = append(r.Ops, Op{
		Kind:   OpLine,
		Points: []geom.Vec{r.apply(a), r.apply(b)},
		Width:  width * r.zoom,
		Color:  c,
		Dash:   dash,
	})
}

func (r *Recorder) FillCircle(center geom.Vec, radius float64, c color.Color) {
	r.Ops = append(r.Ops, Op{Kind: OpFillCircle, Points: []geom.Vec{r.apply(center)}, Radius: radius * r.zoom, Color: c})
}

func (r *Recorder) StrokeCircle(center geom.Vec, radius, width float64, c color.Color) {
	r.Ops = append(r.Ops, Op{
		Kind:   OpStrokeCircle,
		Points: []geom.Vec{r.apply(center)},
		Radius: radius * r.zoom,
		Width:  width * r.zoom,
		Color:  c,
	})
}

func (r *Recorder) FillRect(topLeft, bottomRight geom.Vec, c color.Color) {
	r.Ops = append(r.Ops, Op{Kind: OpFillRect, Points: []geom.Vec{r.apply(topLeft), r.apply(bottomRight)}, Color: c})
}

func (r *Recorder) Text(s string, at geom.Vec, style TextStyle) {
	style.Size *= r.zoom
	r.Ops = append(r.Ops, Op{Kind: OpText, Points: []geom.Vec{r.apply(at)}, Text: s, Style: style})
}

func (r *Recorder) apply(p geom.Vec) geom.Vec {
	return r.origin.Add(p.Scale(r.zoom))
}
