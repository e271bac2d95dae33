// Package view holds the zoom/pan state of the graph view and maps between
// world space (node positions) and screen space (surface pixels).
//
// All view math is in CSS pixels. The device scale only affects the size of
// the backing store; renderers pre-scale by it.
package view

import (
	"math"

	"github.com/matzehuels/ontograph/pkg/geom"
)

// Zoom limits and step factors.
const (
	MinZoom = 0.1
	MaxZoom = 3.0

	WheelOutFactor = 0.9 // deltaY > 0
	WheelInFactor  = 1.1
	ZoomInFactor   = 1.2
	ZoomOutFactor  = 0.8
)

// Viewport is the view transform: screen = center + pan + zoom·world, where
// center is half the surface size. Zoom is always within [MinZoom, MaxZoom];
// pan is unclamped.
type Viewport struct {
	width, height float64
	deviceScale   float64
	zoom          float64
	pan           geom.Vec

	dragging   bool
	pressAt    geom.Vec
	panAtPress geom.Vec
}

// New returns a viewport for a surface of the given CSS size at zoom 1,
// no pan and device scale 1.
func New(width, height float64) *Viewport {
	return &Viewport{width: width, height: height, deviceScale: 1, zoom: 1}
}

// Size returns the surface size in CSS pixels.
func (v *Viewport) Size() (width, height float64) { return v.width, v.height }

// Resize changes the surface size. Negative sizes are treated as zero.
func (v *Viewport) Resize(width, height float64) {
	v.width, v.height = math.Max(width, 0), math.Max(height, 0)
}

// DeviceScale returns the ratio of backing-store pixels to CSS pixels.
func (v *Viewport) DeviceScale() float64 { return v.deviceScale }

// SetDeviceScale sets the device pixel ratio. Non-positive values reset it
// to 1.
func (v *Viewport) SetDeviceScale(s float64) {
	if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		s = 1
	}
	v.deviceScale = s
}

// BackingSize returns the surface size in device pixels.
func (v *Viewport) BackingSize() (width, height int) {
	return int(math.Round(v.width * v.deviceScale)), int(math.Round(v.height * v.deviceScale))
}

// Zoom returns the current zoom factor.
func (v *Viewport) Zoom() float64 { return v.zoom }

// Pan returns the current pan offset.
func (v *Viewport) Pan() geom.Vec { return v.pan }

// Center returns the middle of the surface.
func (v *Viewport) Center() geom.Vec { return geom.V(v.width/2, v.height/2) }

// ToScreen maps a world point to screen space.
func (v *Viewport) ToScreen(world geom.Vec) geom.Vec {
	return v.Center().Add(v.pan).Add(world.Scale(v.zoom))
}

// ToWorld maps a screen point to world space.
func (v *Viewport) ToWorld(screen geom.Vec) geom.Vec {
	return screen.Sub(v.Center()).Sub(v.pan).Div(v.zoom)
}

// SetZoom sets the zoom factor, clamped into [MinZoom, MaxZoom].
func (v *Viewport) SetZoom(z float64) {
	if math.IsNaN(z) {
		return
	}
	v.zoom = clamp(z)
}

// Wheel applies a wheel gesture: deltaY > 0 zooms out by 0.9, anything else
// zooms in by 1.1.
func (v *Viewport) Wheel(deltaY float64) {
	if deltaY > 0 {
		v.SetZoom(v.zoom * WheelOutFactor)
	} else {
		v.SetZoom(v.zoom * WheelInFactor)
	}
}

// ZoomIn multiplies zoom by 1.2.
func (v *Viewport) ZoomIn() { v.SetZoom(v.zoom * ZoomInFactor) }

// ZoomOut multiplies zoom by 0.8.
func (v *Viewport) ZoomOut() { v.SetZoom(v.zoom * ZoomOutFactor) }

// Reset restores zoom 1 and pan (0,0). An active drag is abandoned.
func (v *Viewport) Reset() {
	v.zoom = 1
	v.pan = geom.Vec{}
	v.dragging = false
}

// BeginDrag records the pointer and the pan offset at press time.
func (v *Viewport) BeginDrag(pointer geom.Vec) {
	v.dragging = true
	v.pressAt = pointer
	v.panAtPress = v.pan
}

// DragTo pans so the world point under the press position follows the
// pointer 1:1 in screen space, regardless of zoom. It reports whether a
// drag is active.
func (v *Viewport) DragTo(pointer geom.Vec) bool {
	if !v.dragging {
		return false
	}
	v.pan = pointer.Sub(v.pressAt.Sub(v.panAtPress))
	return true
}

// PanBy shifts the view by d screen pixels. An active drag keeps going from
// the shifted view.
func (v *Viewport) PanBy(d geom.Vec) {
	v.pan = v.pan.Add(d)
	v.panAtPress = v.panAtPress.Add(d)
}

// EndDrag ends the gesture. The pan offset is kept.
func (v *Viewport) EndDrag() { v.dragging = false }

// Dragging reports whether a drag gesture is active.
func (v *Viewport) Dragging() bool { return v.dragging }

func clamp(z float64) float64 {
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}
