// Package canvas is the raster host of the graph renderer, backed by
// github.com/fogleman/gg.
//
// A Canvas is an offscreen RGBA surface sized in CSS pixels times the device
// scale. It implements [render.Surface] and [render.Renderer]; the result can
// be read back as an image or encoded as PNG for export.
package canvas

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"

	"github.com/matzehuels/ontograph/pkg/fonts"
	"github.com/matzehuels/ontograph/pkg/geom"
	"github.com/matzehuels/ontograph/pkg/render"
	"github.com/matzehuels/ontograph/pkg/view"
)

// Options configures a Canvas.
type Options struct {
	// Legend paints the legend panel after each frame. Interactive hosts
	// leave this off and draw their own chrome.
	Legend bool
}

// Canvas is a raster drawing surface. It is not safe for concurrent use.
type Canvas struct {
	dc            *gg.Context
	width, height float64 // CSS pixels
	scale         float64 // device pixels per CSS pixel
	origin        geom.Vec
	zoom          float64
	fonts         *fonts.Cache
	opts          Options
}

var (
	_ render.Surface  = (*Canvas)(nil)
	_ render.Renderer = (*Canvas)(nil)
)

// New creates a canvas of the given CSS size. Non-positive scales are
// treated as 1.
func New(width, height, deviceScale float64, opts Options) *Canvas {
	c := &Canvas{fonts: fonts.NewCache(), opts: opts, zoom: 1}
	c.resize(width, height, deviceScale)
	return c
}

// ForViewport creates a canvas matching the viewport's size and device
// scale.
func ForViewport(vp *view.Viewport, opts Options) *Canvas {
	w, h := vp.Size()
	return New(w, h, vp.DeviceScale(), opts)
}

func (c *Canvas) resize(width, height, scale float64) {
	if scale <= 0 {
		scale = 1
	}
	c.width, c.height, c.scale = width, height, scale
	w := max(int(width*scale+0.5), 1)
	h := max(int(height*scale+0.5), 1)
	c.dc = gg.NewContext(w, h)
}

// Render draws a full frame. The backing store follows the viewport size
// and device scale, like a browser canvas resized on every draw.
func (c *Canvas) Render(scene render.Scene) {
	if vp := scene.Viewport; vp != nil {
		w, h := vp.Size()
		if w != c.width || h != c.height || vp.DeviceScale() != c.scale {
			c.resize(w, h, vp.DeviceScale())
		}
	}
	render.Draw(c, scene)
	if c.opts.Legend && scene.Viewport != nil {
		render.DrawLegend(c, scene.Viewport.Zoom(), scene.Selected)
	}
}

// Image returns the backing image. It is overwritten by the next frame.
func (c *Canvas) Image() image.Image { return c.dc.Image() }

// EncodePNG writes the current frame as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	if err := c.dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// PNG returns the current frame as PNG bytes.
func (c *Canvas) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Size implements [render.Surface].
func (c *Canvas) Size() (float64, float64) { return c.width, c.height }

// Clear implements [render.Surface].
func (c *Canvas) Clear(col color.Color) {
	c.dc.SetColor(col)
	c.dc.Clear()
}

// SetTransform implements [render.Surface].
func (c *Canvas) SetTransform(origin geom.Vec, zoom float64) {
	c.origin, c.zoom = origin, zoom
}

// ResetTransform implements [render.Surface].
func (c *Canvas) ResetTransform() {
	c.origin, c.zoom = geom.Vec{}, 1
}

// gg strokes and glyphs ignore its own matrix for widths and sizes, so the
// canvas maps everything to device pixels itself.
func (c *Canvas) pt(p geom.Vec) (float64, float64) {
	d := c.origin.Add(p.Scale(c.zoom)).Scale(c.scale)
	return d.X, d.Y
}

func (c *Canvas) scaled(v float64) float64 { return v * c.zoom * c.scale }

// Line implements [render.Surface].
func (c *Canvas) Line(a, b geom.Vec, width float64, col color.Color, dash []float64) {
	x1, y1 := c.pt(a)
	x2, y2 := c.pt(b)
	if len(dash) > 0 {
		pattern := make([]float64, len(dash))
		for i, d := range dash {
			pattern[i] = c.scaled(d)
		}
		c.dc.SetDash(pattern...)
	} else {
		c.dc.SetDash()
	}
	c.dc.SetLineCapButt()
	c.dc.SetLineWidth(c.scaled(width))
	c.dc.SetColor(col)
	c.dc.DrawLine(x1, y1, x2, y2)
	c.dc.Stroke()
	c.dc.SetDash()
}

// FillCircle implements [render.Surface].
func (c *Canvas) FillCircle(center geom.Vec, r float64, col color.Color) {
	x, y := c.pt(center)
	c.dc.SetColor(col)
	c.dc.DrawCircle(x, y, c.scaled(r))
	c.dc.Fill()
}

// StrokeCircle implements [render.Surface].
func (c *Canvas) StrokeCircle(center geom.Vec, r, width float64, col color.Color) {
	x, y := c.pt(center)
	c.dc.SetDash()
	c.dc.SetLineWidth(c.scaled(width))
	c.dc.SetColor(col)
	c.dc.DrawCircle(x, y, c.scaled(r))
	c.dc.Stroke()
}

// FillRect implements [render.Surface].
func (c *Canvas) FillRect(topLeft, bottomRight geom.Vec, col color.Color) {
	x1, y1 := c.pt(topLeft)
	x2, y2 := c.pt(bottomRight)
	c.dc.SetColor(col)
	c.dc.DrawRectangle(x1, y1, x2-x1, y2-y1)
	c.dc.Fill()
}

// shadowOffsets approximate a 4px blur with a few offset draws.
var shadowOffsets = []geom.Vec{{X: -1, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: -1}, {X: 0, Y: 1}, {X: 1, Y: 1}}

// Text implements [render.Surface]. Text that cannot be shaped (font load
// failure) is skipped.
func (c *Canvas) Text(s string, at geom.Vec, st render.TextStyle) {
	if s == "" {
		return
	}
	face, err := c.fonts.Face(c.scaled(st.Size), st.Bold)
	if err != nil {
		return
	}
	c.dc.SetFontFace(face)

	ax := 0.5
	if st.Left {
		ax = 0
	}
	x, y := c.pt(at)
	if st.Shadow != nil {
		c.dc.SetColor(st.Shadow)
		for _, o := range shadowOffsets {
			c.dc.DrawStringAnchored(s, x+o.X*c.scale, y+o.Y*c.scale, ax, 0.5)
		}
	}
	c.dc.SetColor(st.Color)
	c.dc.DrawStringAnchored(s, x, y, ax, 0.5)
}
